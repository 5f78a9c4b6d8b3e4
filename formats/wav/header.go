// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/audioio/audio"
)

// HeaderSize is the size of the canonical RIFF/WAVE header.
const HeaderSize = 44

// Format tags stored at offset 20.
const (
	FormatTagPCM   uint16 = 1
	FormatTagFloat uint16 = 3
)

// Fixed header offsets.
const (
	offRiffSize      = 4
	offFormatTag     = 20
	offChannels      = 22
	offSampleRate    = 24
	offByteRate      = 28
	offBlockAlign    = 32
	offBitsPerSample = 34
	offDataID        = 36
	offDataSize      = 40
)

// HeaderInfo is the stream description carried by a WAV header.
type HeaderInfo struct {
	SampleRate     int
	Channels       int
	BytesPerSample int
}

// InfoFromConfig derives the header description for a stream configuration.
func InfoFromConfig(cfg audio.Config) HeaderInfo {
	return HeaderInfo{
		SampleRate:     cfg.SampleRate,
		Channels:       cfg.Channels,
		BytesPerSample: cfg.Format.BytesPerSample(),
	}
}

func (h HeaderInfo) BitsPerSample() int { return h.BytesPerSample * 8 }
func (h HeaderInfo) BlockAlign() int    { return h.Channels * h.BytesPerSample }
func (h HeaderInfo) ByteRate() int      { return h.SampleRate * h.BlockAlign() }

// SampleFormat maps the sample width to an audio.SampleFormat.
// 16-bit data is PCM16 and 32-bit data is float32.
func (h HeaderInfo) SampleFormat() (audio.SampleFormat, error) {
	switch h.BytesPerSample {
	case 2:
		return audio.FormatPCM16, nil
	case 4:
		return audio.FormatFloat32, nil
	}

	return 0, fmt.Errorf("%w: %d bits", ErrUnsupportedBitDepth, h.BitsPerSample())
}

// FormatTag is the WAVE format tag written for this description.
func (h HeaderInfo) FormatTag() uint16 {
	if h.BytesPerSample == 4 {
		return FormatTagFloat
	}

	return FormatTagPCM
}

// Format returns the go-audio view of the stream.
func (h HeaderInfo) Format() *goaudio.Format {
	return &goaudio.Format{
		NumChannels: h.Channels,
		SampleRate:  h.SampleRate,
	}
}

func (h HeaderInfo) validate() error {
	if h.BytesPerSample != 2 && h.BytesPerSample != 4 {
		return fmt.Errorf("%w: %d bits", ErrUnsupportedBitDepth, h.BitsPerSample())
	}

	if h.Channels <= 0 || h.SampleRate <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidHeaderInfo, h.Channels, h.SampleRate)
	}

	return nil
}

// EncodeHeader builds the canonical 44-byte header for dataLen bytes of audio.
func EncodeHeader(h HeaderInfo, dataLen uint32) []byte {
	header := make([]byte, HeaderSize)

	// RIFF header (12 bytes)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[offRiffSize:], HeaderSize-8+dataLen)
	copy(header[8:12], "WAVE")

	// fmt chunk (24 bytes)
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[offFormatTag:], h.FormatTag())
	binary.LittleEndian.PutUint16(header[offChannels:], uint16(h.Channels))
	binary.LittleEndian.PutUint32(header[offSampleRate:], uint32(h.SampleRate))
	binary.LittleEndian.PutUint32(header[offByteRate:], uint32(h.ByteRate()))
	binary.LittleEndian.PutUint16(header[offBlockAlign:], uint16(h.BlockAlign()))
	binary.LittleEndian.PutUint16(header[offBitsPerSample:], uint16(h.BitsPerSample()))

	// data chunk header (8 bytes)
	copy(header[offDataID:offDataID+4], "data")
	binary.LittleEndian.PutUint32(header[offDataSize:], dataLen)

	return header
}

// DecodeHeader parses a canonical header from fixed offsets. It returns the
// stream description and the data size stored at offset 40.
func DecodeHeader(header []byte) (HeaderInfo, uint32, error) {
	if len(header) < HeaderSize {
		return HeaderInfo{}, 0, fmt.Errorf("%w: %d bytes", ErrHeaderTooShort, len(header))
	}

	if !bytes.HasPrefix(header[:4], []byte("RIFF")) || !bytes.HasPrefix(header[8:12], []byte("WAVE")) {
		return HeaderInfo{}, 0, ErrNotWavFile
	}

	if !bytes.HasPrefix(header[12:16], []byte("fmt ")) {
		return HeaderInfo{}, 0, ErrUnsupportedWavLayout
	}

	if !bytes.HasPrefix(header[offDataID:offDataID+4], []byte("data")) {
		return HeaderInfo{}, 0, fmt.Errorf("%w: no data chunk at offset %d", ErrUnsupportedWavLayout, offDataID)
	}

	tag := binary.LittleEndian.Uint16(header[offFormatTag:])
	if tag != FormatTagPCM && tag != FormatTagFloat {
		return HeaderInfo{}, 0, fmt.Errorf("%w: format tag %d", ErrUnsupportedWavLayout, tag)
	}

	bits := int(binary.LittleEndian.Uint16(header[offBitsPerSample:]))
	if bits != 16 && bits != 32 {
		return HeaderInfo{}, 0, fmt.Errorf("%w: %d bits", ErrUnsupportedBitDepth, bits)
	}

	info := HeaderInfo{
		SampleRate:     int(binary.LittleEndian.Uint32(header[offSampleRate:])),
		Channels:       int(binary.LittleEndian.Uint16(header[offChannels:])),
		BytesPerSample: bits / 8,
	}

	// 16-bit data must be integer PCM and 32-bit data IEEE float
	if tag != info.FormatTag() {
		return HeaderInfo{}, 0, fmt.Errorf("%w: format tag %d with %d bits", ErrUnsupportedWavLayout, tag, bits)
	}

	return info, binary.LittleEndian.Uint32(header[offDataSize:]), nil
}
