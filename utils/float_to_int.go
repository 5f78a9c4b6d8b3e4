// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"encoding/binary"
	"math"

	"github.com/ik5/audioio/audio"
)

func Float32ToInt16(x float32) int16 {
	// Clamp and scale
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Use 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}

func Int16ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}

// PutSample encodes x as one little-endian sample of format at the start of dst.
// dst must hold at least format.BytesPerSample() bytes.
func PutSample(dst []byte, format audio.SampleFormat, x float32) {
	switch format {
	case audio.FormatPCM16:
		binary.LittleEndian.PutUint16(dst, uint16(Float32ToInt16(x)))
	case audio.FormatFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(x))
	}
}

// SampleAt decodes the little-endian sample of format at the start of src
// into [-1,1].
func SampleAt(src []byte, format audio.SampleFormat) float32 {
	switch format {
	case audio.FormatPCM16:
		return Int16ToFloat32(int16(binary.LittleEndian.Uint16(src)))
	case audio.FormatFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(src))
	}

	return 0
}
