// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"math"

	"github.com/ik5/audioio/audio"
	"github.com/ik5/audioio/utils"
)

// Waveform generates a sample value in [-1,1] for a frame and channel.
type Waveform func(frame int, channel int) float32

// Silence generates zeros.
func Silence() Waveform {
	return func(int, int) float32 { return 0 }
}

// Constant generates the same value on every channel.
func Constant(value float32) Waveform {
	return func(int, int) float32 { return value }
}

// Sine generates a sine wave at frequency for the given sample rate.
func Sine(sampleRate int, frequency float64) Waveform {
	return func(frame int, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	}
}

// PCM renders frames of waveform as interleaved little-endian bytes,
// starting at frame offset start.
func PCM(format audio.SampleFormat, channels, start, frames int, waveform Waveform) []byte {
	bps := format.BytesPerSample()
	buf := make([]byte, frames*channels*bps)
	Fill(buf, format, channels, start, waveform)

	return buf
}

// Fill renders whole frames of waveform into dst and returns the number of
// frames written.
func Fill(dst []byte, format audio.SampleFormat, channels, start int, waveform Waveform) int {
	bps := format.BytesPerSample()
	if bps == 0 || channels <= 0 {
		return 0
	}

	frames := len(dst) / (bps * channels)
	for f := range frames {
		for ch := range channels {
			off := (f*channels + ch) * bps
			utils.PutSample(dst[off:], format, waveform(start+f, ch))
		}
	}

	return frames
}
