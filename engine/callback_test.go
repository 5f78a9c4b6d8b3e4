// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audioio/audio"
)

func TestFromReader(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte{1, 2, 3, 4}, 5) // 20 bytes
	var ends []error
	fn := FromReader(bytes.NewReader(src), func(err error) { ends = append(ends, err) })

	buf := audio.NewBuffer(8)

	fn(buf)
	assert.Equal(t, src[:8], buf.Bytes())
	fn(buf)
	assert.Equal(t, src[8:16], buf.Bytes())

	fn(buf)
	assert.Equal(t, src[16:], buf.Bytes(), "short tail is delivered")
	assert.Empty(t, ends)

	fn(buf)
	assert.Zero(t, buf.Len())
	require.Len(t, ends, 1)
	require.NoError(t, ends[0])

	fn(buf)
	assert.Zero(t, buf.Len())
	assert.Len(t, ends, 1, "onEnd called more than once")
}

func TestFromReader_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var got error
	fn := FromReader(iotest.ErrReader(boom), func(err error) { got = err })

	buf := audio.NewBuffer(8)
	fn(buf)

	assert.Zero(t, buf.Len())
	require.ErrorIs(t, got, boom)

	// nil onEnd is allowed
	FromReader(bytes.NewReader(nil), nil)(buf)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestToWriter(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	fn := ToWriter(&out, nil)

	buf := audio.NewBuffer(4)
	copy(buf.Data(), []byte{9, 8, 7, 6})
	buf.SetLen(3)
	fn(buf)

	buf.Reset()
	fn(buf)

	assert.Equal(t, []byte{9, 8, 7}, out.Bytes())

	boom := errors.New("disk full")
	var got []error
	fn = ToWriter(failingWriter{boom}, func(err error) { got = append(got, err) })

	buf.SetLen(4)
	fn(buf)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], boom)
}
