// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ik5/audioio/audio"
	"github.com/ik5/audioio/internal/observe"
)

// Recorder captures PCM from an input device on a dedicated worker goroutine
// and hands each full buffer to a CaptureFunc. Unlike Player, status changes
// are applied directly under the lock; there is nothing to fade.
type Recorder struct {
	platform audio.Platform
	opts     options
	log      *zap.Logger
	met      *observe.Metrics

	mtx      sync.Mutex
	cfg      audio.Config
	device   *guardedDevice
	buf      *audio.Buffer
	callback CaptureFunc
	status   audio.Status
	wake     chan struct{}
	done     chan struct{}
	released bool
}

// NewRecorder returns an uninitialized Recorder for platform.
func NewRecorder(platform audio.Platform, opts ...Option) *Recorder {
	o := newOptions(opts)

	return &Recorder{
		platform: platform,
		opts:     o,
		log:      o.logger.With(zap.Stringer("direction", audio.Input)),
		met:      o.metrics(),
		wake:     make(chan struct{}, 1),
	}
}

// SetDataCallback registers the function receiving captured buffers.
func (r *Recorder) SetDataCallback(fn CaptureFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.callback = fn
}

func (r *Recorder) Status() audio.Status {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.status
}

func (r *Recorder) Config() audio.Config {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.cfg
}

// Init validates cfg, opens the input device and allocates the transfer
// buffer. On failure the Recorder stays Uninitiated.
func (r *Recorder) Init(cfg audio.Config) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.status != audio.StatusUninitiated {
		return fmt.Errorf("%w: status %s", ErrAlreadyInitialized, r.status)
	}

	dev, buf, err := openDevice(r.platform, cfg, audio.Input)
	if err != nil {
		r.log.Warn("init failed", zap.Error(err))
		return err
	}

	r.cfg = cfg
	r.device = newGuardedDevice(dev, audio.Input, r.log, r.met)
	r.buf = buf
	r.status = audio.StatusInitiated

	return nil
}

// Start spawns the worker from Initiated and returns without waiting for the
// first buffer. From Paused it resumes; from Started or Resumed it does
// nothing. Any other status panics.
func (r *Recorder) Start() {
	r.mtx.Lock()
	switch r.status {
	case audio.StatusInitiated:
		r.status = audio.StatusStarted
		r.done = make(chan struct{})
		go r.run(r.done)
		r.mtx.Unlock()

		r.met.StreamStarted(context.Background(), audio.Input.String())
		r.met.RecordTransition(context.Background(), audio.Input.String(), audio.StatusStarted.String())
	case audio.StatusPaused:
		r.mtx.Unlock()
		r.Resume()
	case audio.StatusStarted, audio.StatusResumed:
		r.mtx.Unlock()
	default:
		status := r.status
		r.mtx.Unlock()
		panic(fmt.Sprintf("engine: Recorder.Start called in status %s", status))
	}
}

// Pause stops the device and parks the worker. No-op unless running.
func (r *Recorder) Pause() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if !r.status.Running() {
		return
	}

	r.device.control("stop", audio.Device.Stop)
	r.setStatus(audio.StatusPaused)
}

// Resume restarts the device and wakes the worker. No-op unless Paused.
func (r *Recorder) Resume() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.status != audio.StatusPaused {
		return
	}

	r.device.control("start", audio.Device.Start)
	r.setStatus(audio.StatusResumed)
	r.signal()
}

// Stop asks the worker to exit after its current read. No-op unless started.
func (r *Recorder) Stop() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if !r.status.Active() {
		return
	}

	r.setStatus(audio.StatusStopped)
	r.signal()
}

// Release frees the device, joining the worker with a bounded wait when one
// exists, and drops the callback. Safe to call more than once.
func (r *Recorder) Release() {
	r.mtx.Lock()
	if r.released {
		r.mtx.Unlock()
		return
	}
	if r.device == nil {
		// nothing to free before a successful Init
		r.callback = nil
		r.mtx.Unlock()
		return
	}
	r.released = true

	done := r.done
	switch {
	case done == nil:
		r.status = audio.StatusStopped
		dev := r.device
		r.mtx.Unlock()
		dev.release()
	default:
		if r.status != audio.StatusStopped {
			r.setStatus(audio.StatusStopped)
		}
		r.signal()
		r.mtx.Unlock()
		r.join(done)
	}

	r.mtx.Lock()
	r.callback = nil
	r.mtx.Unlock()
}

// setStatus requires r.mtx.
func (r *Recorder) setStatus(status audio.Status) {
	r.log.Debug("transition", zap.Stringer("from", r.status), zap.Stringer("to", status))
	r.status = status
	r.met.RecordTransition(context.Background(), audio.Input.String(), status.String())
}

func (r *Recorder) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Recorder) join(done <-chan struct{}) {
	timer := time.NewTimer(r.opts.joinTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		r.log.Warn("worker did not exit in time", zap.Duration("timeout", r.opts.joinTimeout))
	}
}

func (r *Recorder) idle() {
	timer := time.NewTimer(r.opts.idleBackoff)
	defer timer.Stop()

	select {
	case <-r.wake:
	case <-timer.C:
	}
}

// gate blocks while Paused and reports whether the worker should keep going.
func (r *Recorder) gate() (CaptureFunc, bool) {
	for {
		r.mtx.Lock()
		status := r.status
		callback := r.callback
		r.mtx.Unlock()

		switch status {
		case audio.StatusPaused:
			<-r.wake
		case audio.StatusStopped, audio.StatusUninitiated:
			return nil, false
		default:
			return callback, true
		}
	}
}

func (r *Recorder) running() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.status.Running()
}

func (r *Recorder) run(done chan struct{}) {
	ctx := context.Background()
	dir := audio.Input.String()

	defer func() {
		r.device.teardown()
		r.met.StreamStopped(ctx, dir)
		r.log.Debug("worker exited")
		close(done)
	}()

	r.device.control("start", audio.Device.Start)

	for {
		callback, ok := r.gate()
		if !ok {
			return
		}

		n, err := r.fill(ctx)
		if err != nil {
			// a failed buffer is never delivered as a short success
			if r.running() {
				r.device.fail("read", err)
				r.idle()
			} else {
				r.log.Debug("read interrupted by status change", zap.Error(err))
			}
			continue
		}

		if n == 0 {
			continue
		}

		r.buf.SetLen(n)
		if callback != nil {
			callback(r.buf)
		}
	}
}

// fill reads until the buffer is full or the device fails. It gives up early
// with what it has when the device yields nothing and the Recorder is no
// longer running.
func (r *Recorder) fill(ctx context.Context) (int, error) {
	data := r.buf.Data()
	r.buf.Reset()

	total := 0
	for total < len(data) {
		n, err := r.device.dev.Read(data[total:])
		if n > 0 {
			total += n
			r.met.RecordBytes(ctx, audio.Input.String(), n)
		}

		if err != nil {
			return total, err
		}

		if n == 0 {
			if !r.running() {
				return 0, nil
			}
			r.idle()
		}
	}

	return total, nil
}
