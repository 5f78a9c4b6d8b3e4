// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidConfig       = errors.New("invalid stream configuration")
	ErrInvalidBufferSize   = errors.New("buffer size must be a positive multiple of the frame size")
	ErrInvalidSampleRate   = errors.New("sample rate must be positive")
	ErrInvalidChannelCount = errors.New("channel count must be 1 or 2")
	ErrUnsupportedFormat   = errors.New("unsupported sample format")
	ErrInvalidDirection    = errors.New("invalid stream direction")
	ErrDeviceStopped       = errors.New("device already stopped")
	ErrUnknownPlatform     = errors.New("unknown platform")
)
