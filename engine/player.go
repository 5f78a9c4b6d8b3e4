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
	"github.com/ik5/audioio/utils"
)

// Player streams PCM from a PlaybackFunc to an output device on a dedicated
// worker goroutine. Every status transition is applied by the worker, which
// fades the buffer it is rendering at that moment. Control calls block until
// the worker has applied the requested transition.
type Player struct {
	platform audio.Platform
	opts     options
	log      *zap.Logger
	met      *observe.Metrics

	mtx      sync.Mutex
	cfg      audio.Config
	device   *guardedDevice
	buf      *audio.Buffer
	callback PlaybackFunc

	// cur is the status last applied by the worker, target the one requested.
	cur     audio.Status
	target  audio.Status
	pending bool
	// applied is closed and replaced every time the worker acknowledges.
	applied chan struct{}
	wake    chan struct{}
	done    chan struct{}

	released bool
}

// NewPlayer returns an uninitialized Player for platform.
func NewPlayer(platform audio.Platform, opts ...Option) *Player {
	o := newOptions(opts)

	return &Player{
		platform: platform,
		opts:     o,
		log:      o.logger.With(zap.Stringer("direction", audio.Output)),
		met:      o.metrics(),
		applied:  make(chan struct{}),
		wake:     make(chan struct{}, 1),
	}
}

// SetDataCallback registers the function that fills each buffer.
func (p *Player) SetDataCallback(fn PlaybackFunc) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.callback = fn
}

// Status reports the status last applied by the worker.
func (p *Player) Status() audio.Status {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return p.cur
}

// Config returns the configuration given to Init.
func (p *Player) Config() audio.Config {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return p.cfg
}

// Init validates cfg, opens the output device and allocates the transfer
// buffer. On failure the Player stays Uninitiated.
func (p *Player) Init(cfg audio.Config) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.cur != audio.StatusUninitiated {
		return fmt.Errorf("%w: status %s", ErrAlreadyInitialized, p.cur)
	}

	dev, buf, err := openDevice(p.platform, cfg, audio.Output)
	if err != nil {
		p.log.Warn("init failed", zap.Error(err))
		return err
	}

	p.cfg = cfg
	p.device = newGuardedDevice(dev, audio.Output, p.log, p.met)
	p.buf = buf
	p.cur = audio.StatusInitiated
	p.target = audio.StatusInitiated

	p.log.Debug("initiated",
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Int("channels", cfg.Channels),
		zap.Stringer("format", cfg.Format),
		zap.Int("buffer_size", cfg.BufferSize),
	)

	return nil
}

// Start spawns the worker and blocks until it has applied Started. Calling
// Start in any status but Initiated is a programming error and panics.
func (p *Player) Start() {
	p.mtx.Lock()
	if p.cur != audio.StatusInitiated || p.done != nil {
		status := p.cur
		p.mtx.Unlock()
		panic(fmt.Sprintf("engine: Player.Start called in status %s", status))
	}

	p.request(audio.StatusStarted)
	p.done = make(chan struct{})
	go p.run(p.done)
	p.mtx.Unlock()

	p.met.StreamStarted(context.Background(), audio.Output.String())
	p.await(audio.StatusStarted)
}

// Pause fades out, waits for the worker to apply Paused, then pauses the
// device. It is a no-op unless the Player is Started or Resumed.
func (p *Player) Pause() {
	p.mtx.Lock()
	if !p.target.Running() {
		p.mtx.Unlock()
		return
	}
	p.request(audio.StatusPaused)
	p.mtx.Unlock()

	p.await(audio.StatusPaused)

	p.mtx.Lock()
	paused := p.cur == audio.StatusPaused
	p.mtx.Unlock()

	if paused {
		p.device.control("pause", audio.Device.Pause)
	}
}

// Resume restarts the device and waits for the worker to apply Resumed,
// fading in. It is a no-op unless the Player is Paused.
func (p *Player) Resume() {
	p.mtx.Lock()
	if p.cur != audio.StatusPaused || p.target != audio.StatusPaused {
		p.mtx.Unlock()
		return
	}
	p.mtx.Unlock()

	p.device.control("start", audio.Device.Start)

	p.mtx.Lock()
	if p.target != audio.StatusPaused {
		// stopped while the device was restarting
		p.mtx.Unlock()
		return
	}
	p.request(audio.StatusResumed)
	p.mtx.Unlock()

	p.await(audio.StatusResumed)
}

// Stop waits for the worker to apply Stopped. The worker exits and tears the
// device down. It is a no-op if the Player never started or already stopped.
func (p *Player) Stop() {
	p.mtx.Lock()
	if !p.target.Active() {
		p.mtx.Unlock()
		return
	}
	p.request(audio.StatusStopped)
	p.mtx.Unlock()

	p.await(audio.StatusStopped)
}

// Release frees the device. A Player that never started releases it
// synchronously; otherwise the worker is stopped and joined with a bounded
// wait. Release is safe to call more than once.
func (p *Player) Release() {
	p.mtx.Lock()
	if p.released || p.device == nil {
		// nothing to free before a successful Init
		p.mtx.Unlock()
		return
	}
	p.released = true

	if p.done == nil {
		dev := p.device
		if p.cur == audio.StatusInitiated {
			p.cur = audio.StatusStopped
			p.target = audio.StatusStopped
		}
		p.mtx.Unlock()

		dev.release()
		return
	}

	if p.target != audio.StatusStopped {
		p.request(audio.StatusStopped)
	}
	done := p.done
	p.mtx.Unlock()

	p.join(done)
}

// request records a new target and wakes the worker. p.mtx must be held.
func (p *Player) request(status audio.Status) {
	p.target = status
	p.pending = true

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// await blocks until no transition is pending or the worker has exited,
// logging every ack interval.
func (p *Player) await(status audio.Status) {
	begin := time.Now()
	ticker := time.NewTicker(p.opts.ackInterval)
	defer ticker.Stop()

	for {
		p.mtx.Lock()
		pending := p.pending
		applied := p.applied
		done := p.done
		p.mtx.Unlock()

		if !pending || done == nil {
			break
		}

		select {
		case <-applied:
		case <-done:
			p.met.RecordTransitionWait(context.Background(), status.String(), time.Since(begin))
			return
		case <-ticker.C:
			p.log.Warn("still waiting for worker to apply transition",
				zap.Stringer("status", status),
				zap.Duration("waited", time.Since(begin)),
			)
		}
	}

	p.met.RecordTransitionWait(context.Background(), status.String(), time.Since(begin))
}

func (p *Player) join(done <-chan struct{}) {
	timer := time.NewTimer(p.opts.joinTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		p.log.Warn("worker did not exit in time", zap.Duration("timeout", p.opts.joinTimeout))
	}
}

// acknowledge marks status applied and releases waiters. A request that
// arrived meanwhile stays pending.
func (p *Player) acknowledge(status audio.Status) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.target == status {
		p.pending = false
	}

	close(p.applied)
	p.applied = make(chan struct{})
}

// idle sleeps for the idle backoff or until a control call wakes the worker.
func (p *Player) idle() {
	timer := time.NewTimer(p.opts.idleBackoff)
	defer timer.Stop()

	select {
	case <-p.wake:
	case <-timer.C:
	}
}

func (p *Player) run(done chan struct{}) {
	ctx := context.Background()
	dir := audio.Output.String()

	defer func() {
		p.device.teardown()
		p.met.StreamStopped(ctx, dir)
		p.log.Debug("worker exited")
		close(done)
	}()

	p.device.control("start", audio.Device.Start)

	for {
		p.mtx.Lock()
		needFade := p.pending
		prev := p.cur
		if needFade {
			p.cur = p.target
		}
		status := p.cur
		callback := p.callback
		p.mtx.Unlock()

		if needFade {
			p.met.RecordTransition(ctx, dir, status.String())
			p.log.Debug("transition", zap.Stringer("from", prev), zap.Stringer("to", status))
		}

		// nothing is audible between a paused device and a stop
		if !(needFade && prev == audio.StatusPaused && status == audio.StatusStopped) {
			p.render(ctx, callback, needFade, status)
		}

		if needFade {
			p.acknowledge(status)
		}

		switch status {
		case audio.StatusPaused:
			p.waitWhilePaused()
		case audio.StatusStopped, audio.StatusUninitiated:
			return
		}
	}
}

func (p *Player) render(ctx context.Context, callback PlaybackFunc, needFade bool, status audio.Status) {
	p.buf.Reset()
	if callback != nil {
		callback(p.buf)
	}

	if p.buf.Len() == 0 {
		if !needFade {
			p.met.RecordEmptyCallback(ctx, audio.Output.String())
			p.idle()
		}
		return
	}

	if needFade {
		switch status {
		case audio.StatusPaused, audio.StatusStopped:
			utils.FadeOut(p.buf.Bytes(), p.cfg.Format, p.cfg.Channels)
		case audio.StatusStarted, audio.StatusResumed:
			utils.FadeIn(p.buf.Bytes(), p.cfg.Format, p.cfg.Channels)
		}
	}

	p.write(ctx, p.buf.Bytes())
}

func (p *Player) write(ctx context.Context, b []byte) {
	for len(b) > 0 {
		n, err := p.device.dev.Write(b)
		if n > 0 {
			p.met.RecordBytes(ctx, audio.Output.String(), n)
			b = b[n:]
		}

		if err != nil {
			p.device.fail("write", err)
			p.idle()
			return
		}

		if n == 0 {
			return
		}
	}
}

func (p *Player) waitWhilePaused() {
	for {
		p.mtx.Lock()
		pending := p.pending
		p.mtx.Unlock()

		if pending {
			return
		}

		<-p.wake
	}
}
