// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ik5/audioio/audio"
	"github.com/ik5/audioio/internal/observe"
)

// openDevice validates cfg for an engine of direction want and opens the
// device with the platform's minimum safe buffer size.
func openDevice(p audio.Platform, cfg audio.Config, want audio.Direction) (audio.Device, *audio.Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.Direction != want {
		return nil, nil, fmt.Errorf("%w: %w: %s engine given %s config",
			audio.ErrInvalidConfig, audio.ErrInvalidDirection, want, cfg.Direction)
	}

	if cfg.Format == audio.FormatFloat32 && !p.SupportsFloat() {
		return nil, nil, fmt.Errorf("%w: %w: %s not available on %s",
			audio.ErrInvalidConfig, audio.ErrUnsupportedFormat, cfg.Format, p.Name())
	}

	minSize, err := p.MinBufferSize(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrOpenDevice, err)
	}
	if minSize <= 0 {
		minSize = cfg.BufferSize
	}

	dev, err := p.Open(cfg, minSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrOpenDevice, err)
	}

	return dev, audio.NewBuffer(cfg.BufferSize), nil
}

// guardedDevice serializes control calls with teardown. Read and Write are
// issued by the worker directly and never race with teardown, which the
// worker performs itself.
type guardedDevice struct {
	dev audio.Device
	dir string
	log *zap.Logger
	met *observe.Metrics

	mtx    sync.Mutex
	closed bool
}

func newGuardedDevice(dev audio.Device, dir audio.Direction, log *zap.Logger, met *observe.Metrics) *guardedDevice {
	return &guardedDevice{dev: dev, dir: dir.String(), log: log, met: met}
}

// control runs a control call unless the device was torn down. Failures are
// logged and counted.
func (g *guardedDevice) control(op string, fn func(audio.Device) error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if g.closed {
		return
	}

	if err := fn(g.dev); err != nil {
		g.fail(op, err)
	}
}

// teardown stops and releases the device exactly once. Errors are never
// returned: an already stopped device is expected here.
func (g *guardedDevice) teardown() {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if g.closed {
		return
	}
	g.closed = true

	if err := g.dev.Stop(); err != nil {
		if errors.Is(err, audio.ErrDeviceStopped) {
			g.log.Debug("device already stopped", zap.Error(err))
		} else {
			g.fail("stop", err)
		}
	}

	if err := g.dev.Release(); err != nil {
		g.fail("release", err)
	}
}

// release frees a device that never streamed.
func (g *guardedDevice) release() {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if g.closed {
		return
	}
	g.closed = true

	if err := g.dev.Release(); err != nil {
		g.fail("release", err)
	}
}

func (g *guardedDevice) fail(op string, err error) {
	g.log.Warn("device call failed", zap.String("op", op), zap.Error(err))
	g.met.RecordDeviceError(context.Background(), g.dir, op)
}
