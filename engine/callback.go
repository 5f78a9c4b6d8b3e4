// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"io"

	"github.com/ik5/audioio/audio"
)

// PlaybackFunc fills buf with the next chunk to play and sets its length.
// Leaving the buffer empty means no data is available yet.
type PlaybackFunc func(buf *audio.Buffer)

// CaptureFunc receives one captured chunk. buf is reused after it returns.
type CaptureFunc func(buf *audio.Buffer)

// FromReader feeds playback from r. onEnd, if not nil, is called once with
// nil at io.EOF or with the read error; afterwards the callback produces no
// data.
func FromReader(r io.Reader, onEnd func(error)) PlaybackFunc {
	var ended bool

	return func(buf *audio.Buffer) {
		if ended {
			return
		}

		n, err := io.ReadFull(r, buf.Data())
		buf.SetLen(n)

		if err == nil || (errors.Is(err, io.ErrUnexpectedEOF) && n > 0) {
			return
		}

		ended = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = nil
		}
		if onEnd != nil {
			onEnd(err)
		}
	}
}

// ToWriter appends every captured chunk to w. onErr, if not nil, receives
// write failures.
func ToWriter(w io.Writer, onErr func(error)) CaptureFunc {
	return func(buf *audio.Buffer) {
		if buf.Len() == 0 {
			return
		}

		if _, err := w.Write(buf.Bytes()); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
