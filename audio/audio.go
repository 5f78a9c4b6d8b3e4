// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"strings"
)

// SampleFormat is the encoding of a single PCM sample.
type SampleFormat int

const (
	// FormatPCM16 is signed 16-bit little-endian PCM.
	FormatPCM16 SampleFormat = iota
	// FormatFloat32 is IEEE-754 32-bit little-endian float PCM in [-1,1].
	FormatFloat32
)

// BytesPerSample returns the width of one sample, or 0 for unknown formats.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatPCM16:
		return 2
	case FormatFloat32:
		return 4
	}

	return 0
}

func (f SampleFormat) String() string {
	switch f {
	case FormatPCM16:
		return "pcm16"
	case FormatFloat32:
		return "float32"
	}

	return fmt.Sprintf("SampleFormat(%d)", int(f))
}

// ParseSampleFormat maps "pcm16" / "float32" (case-insensitive) to a SampleFormat.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pcm16", "s16", "int16":
		return FormatPCM16, nil
	case "float32", "float", "f32":
		return FormatFloat32, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Direction says whether a stream feeds a sink or drains a source.
type Direction int

const (
	// Output streams bytes to a playback sink.
	Output Direction = iota
	// Input streams bytes from a capture source.
	Input
)

func (d Direction) String() string {
	switch d {
	case Output:
		return "output"
	case Input:
		return "input"
	}

	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection maps "output" / "input" to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "output", "playback", "out":
		return Output, nil
	case "input", "capture", "in":
		return Input, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Status is the lifecycle state of a streaming engine.
type Status int

const (
	StatusUninitiated Status = iota
	StatusInitiated
	StatusStarted
	StatusPaused
	StatusResumed
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusUninitiated:
		return "uninitiated"
	case StatusInitiated:
		return "initiated"
	case StatusStarted:
		return "started"
	case StatusPaused:
		return "paused"
	case StatusResumed:
		return "resumed"
	case StatusStopped:
		return "stopped"
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// Running reports whether the status is Started or Resumed.
func (s Status) Running() bool {
	return s == StatusStarted || s == StatusResumed
}

// Active reports whether a worker exists for this status.
func (s Status) Active() bool {
	return s == StatusStarted || s == StatusPaused || s == StatusResumed
}

// Config describes one streaming session.
type Config struct {
	SampleRate int
	Channels   int
	Format     SampleFormat
	// BufferSize is the size in bytes of one transfer unit.
	BufferSize int
	Direction  Direction
}

// FrameSize returns the number of bytes in one interleaved frame.
func (c Config) FrameSize() int {
	return c.Channels * c.Format.BytesPerSample()
}

// Validate checks the configuration without consulting any platform.
// The returned error wraps ErrInvalidConfig and a specific sentinel.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, ErrInvalidSampleRate, c.SampleRate)
	}

	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, ErrInvalidChannelCount, c.Channels)
	}

	if c.Format.BytesPerSample() == 0 {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, ErrUnsupportedFormat, c.Format)
	}

	if c.Direction != Output && c.Direction != Input {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, ErrInvalidDirection, c.Direction)
	}

	if c.BufferSize <= 0 || c.BufferSize%c.FrameSize() != 0 {
		return fmt.Errorf("%w: %w: %d is not a positive multiple of frame size %d",
			ErrInvalidConfig, ErrInvalidBufferSize, c.BufferSize, c.FrameSize())
	}

	return nil
}

// BytesPerSecond returns the byte rate of the configured stream.
func (c Config) BytesPerSecond() int {
	return c.SampleRate * c.FrameSize()
}
