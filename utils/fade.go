// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"encoding/binary"
	"math"

	"github.com/ik5/audioio/audio"
)

// Ramp selects the direction of a linear gain ramp.
type Ramp int

const (
	// RampIn rises from silence on the first frame to unity on the last.
	RampIn Ramp = iota
	// RampOut falls from unity on the first frame to silence on the last.
	RampOut
)

// Gain returns the ramp gain for frame f of frames.
func (r Ramp) Gain(f, frames int) float64 {
	if frames <= 1 {
		// a single frame is either the start of a fade-in or the end of a fade-out
		return 0
	}

	g := float64(f) / float64(frames-1)
	if r == RampOut {
		g = 1 - g
	}

	return g
}

// FadeIn applies a linear fade-in across the whole of pcm in place.
func FadeIn(pcm []byte, format audio.SampleFormat, channels int) {
	Fade(pcm, format, channels, RampIn)
}

// FadeOut applies a linear fade-out across the whole of pcm in place.
// The last frame is exactly silent.
func FadeOut(pcm []byte, format audio.SampleFormat, channels int) {
	Fade(pcm, format, channels, RampOut)
}

// Fade scales interleaved little-endian PCM frame by frame. All channels of
// a frame share one gain. Bytes past the last whole frame are left untouched.
func Fade(pcm []byte, format audio.SampleFormat, channels int, ramp Ramp) {
	bps := format.BytesPerSample()
	if bps == 0 || channels <= 0 {
		return
	}

	frameSize := bps * channels
	frames := len(pcm) / frameSize

	for f := range frames {
		gain := ramp.Gain(f, frames)
		base := f * frameSize

		for ch := range channels {
			off := base + ch*bps
			sample := pcm[off : off+bps]

			switch format {
			case audio.FormatPCM16:
				v := int16(binary.LittleEndian.Uint16(sample))
				binary.LittleEndian.PutUint16(sample, uint16(int16(float64(v)*gain)))
			case audio.FormatFloat32:
				v := math.Float32frombits(binary.LittleEndian.Uint32(sample))
				binary.LittleEndian.PutUint32(sample, math.Float32bits(float32(float64(v)*gain)))
			}
		}
	}
}
