// SPDX-License-Identifier: EPL-2.0

package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ik5/audioio/audio"
	"github.com/ik5/audioio/engine"
	"github.com/ik5/audioio/formats/wav"
)

// DefaultBufferFrames sizes the playback buffer when PlayWAV is given none.
const DefaultBufferFrames = 1024

// Result summarizes a finished session.
type Result struct {
	// Path is the WAV file recorded to or played from.
	Path string
	// Info describes the stream.
	Info wav.HeaderInfo
	// Bytes is the number of audio bytes captured or played.
	Bytes int64
}

// Duration is the playing time of the moved bytes.
func (r Result) Duration() time.Duration {
	rate := r.Info.ByteRate()
	if rate == 0 {
		return 0
	}

	return time.Duration(r.Bytes) * time.Second / time.Duration(rate)
}

// RecordWAV captures from platform into a new WAV file at path until ctx is
// done, then stops the recorder and finalizes the header. cfg.Direction must
// be audio.Input. The end of ctx is the normal way to finish and is not
// reported as an error; a failed file write ends the session early and is.
func RecordWAV(ctx context.Context, platform audio.Platform, cfg audio.Config, path string, opts ...engine.Option) (Result, error) {
	rec := engine.NewRecorder(platform, opts...)
	if err := rec.Init(cfg); err != nil {
		return Result{}, err
	}
	defer rec.Release()

	f, err := wav.Create(path, wav.InfoFromConfig(cfg))
	if err != nil {
		return Result{}, err
	}

	failure := newWriteFailure()
	rec.SetDataCallback(engine.ToWriter(f, failure.report))

	rec.Start()

	select {
	case <-ctx.Done():
	case <-failure.done:
	}

	rec.Stop()
	rec.Release()

	res := Result{Path: path, Info: f.Info(), Bytes: f.DataLen()}

	if err := f.Close(); err != nil {
		return res, err
	}

	select {
	case <-failure.done:
		return res, fmt.Errorf("record %s: %w", path, failure.err)
	default:
	}

	return res, nil
}

// writeFailure latches the first failed write of a recording. A worker that
// outlived the bounded join may still deliver a buffer after the file is
// closed; that write is dropped and not reported.
type writeFailure struct {
	once sync.Once
	err  error
	done chan struct{}
}

func newWriteFailure() *writeFailure {
	return &writeFailure{done: make(chan struct{})}
}

func (w *writeFailure) report(err error) {
	if errors.Is(err, wav.ErrFileClosed) {
		return
	}

	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

// PlayWAV plays the WAV file at path on platform until the data chunk is
// exhausted or ctx is done. The session configuration comes from the file
// header; bufferSize is the transfer size in bytes, or DefaultBufferFrames
// frames when zero or less.
func PlayWAV(ctx context.Context, platform audio.Platform, path string, bufferSize int, opts ...engine.Option) (Result, error) {
	f, err := wav.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	info := f.Info()
	format, err := info.SampleFormat()
	if err != nil {
		return Result{}, err
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferFrames * info.BlockAlign()
	}

	cfg := audio.Config{
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		Format:     format,
		BufferSize: bufferSize,
		Direction:  audio.Output,
	}

	player := engine.NewPlayer(platform, opts...)
	if err := player.Init(cfg); err != nil {
		return Result{}, err
	}
	defer player.Release()

	src := &countingReader{r: f}
	ended := make(chan error, 1)

	// the callback runs on the worker; Stop must be called from here
	player.SetDataCallback(engine.FromReader(src, func(err error) {
		ended <- err
	}))

	player.Start()

	var readErr error
	select {
	case <-ctx.Done():
	case readErr = <-ended:
	}

	player.Stop()
	player.Release()

	res := Result{Path: path, Info: info, Bytes: src.count()}
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return res, fmt.Errorf("play %s: %w", path, readErr)
	}

	return res, nil
}

// countingReader counts the bytes handed to the player.
type countingReader struct {
	r io.Reader

	mtx sync.Mutex
	n   int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)

	c.mtx.Lock()
	c.n += int64(n)
	c.mtx.Unlock()

	return n, err
}

func (c *countingReader) count() int64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.n
}
