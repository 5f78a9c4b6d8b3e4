// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile           = errors.New("not a WAV file")
	ErrUnsupportedWavLayout = errors.New("unsupported WAV layout")
	ErrUnsupportedBitDepth  = errors.New("only 16 or 32 bits per sample supported")
	ErrHeaderTooShort       = errors.New("WAV header too short")
	ErrInvalidHeaderInfo    = errors.New("invalid WAV header info")
	ErrNotReadMode          = errors.New("WAV file not opened for reading")
	ErrNotWriteMode         = errors.New("WAV file not opened for writing")
	ErrFileClosed           = errors.New("WAV file closed")
)
