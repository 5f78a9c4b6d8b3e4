// SPDX-License-Identifier: EPL-2.0

// Package null is an audio platform without hardware. Output devices discard
// what they are given and input devices produce silence, both paced at the
// configured byte rate so engines behave as they would against a sound card.
package null

import (
	"fmt"
	"sync"
	"time"

	"github.com/ik5/audioio/audio"
)

// Name is the registry name of the platform.
const Name = "null"

// Platform opens paced silent devices.
type Platform struct {
	// Unpaced makes devices return immediately instead of sleeping for the
	// duration of the bytes moved.
	Unpaced bool
}

// New returns a paced null platform.
func New() *Platform {
	return &Platform{}
}

func (p *Platform) Name() string        { return Name }
func (p *Platform) SupportsFloat() bool { return true }

// MinBufferSize is one transfer buffer; there is no hardware constraint.
func (p *Platform) MinBufferSize(cfg audio.Config) (int, error) {
	return cfg.BufferSize, nil
}

func (p *Platform) Open(cfg audio.Config, bufferSize int) (audio.Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Device{
		cfg:        cfg,
		bufferSize: bufferSize,
		paced:      !p.Unpaced,
	}, nil
}

// Device is a null device. The zero value is not usable; use Platform.Open.
type Device struct {
	cfg        audio.Config
	bufferSize int
	paced      bool

	mtx      sync.Mutex
	running  bool
	released bool
	// clock is the wall time the stream position corresponds to.
	clock time.Time
	moved int64
}

func (d *Device) Start() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.released {
		return fmt.Errorf("null: start: %w", audio.ErrDeviceStopped)
	}

	d.running = true
	d.clock = time.Now()

	return nil
}

// Pause and Stop are the same for a device with nothing to drain.
func (d *Device) Pause() error {
	return d.Stop()
}

func (d *Device) Stop() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if !d.running {
		return fmt.Errorf("null: %w", audio.ErrDeviceStopped)
	}
	d.running = false

	return nil
}

func (d *Device) Release() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.running = false
	d.released = true

	return nil
}

// Read fills p with silence, whole frames only.
func (d *Device) Read(p []byte) (int, error) {
	n := len(p) - len(p)%d.cfg.FrameSize()
	if err := d.advance(n); err != nil {
		return 0, err
	}

	clear(p[:n])

	return n, nil
}

// Write discards p.
func (d *Device) Write(p []byte) (int, error) {
	if err := d.advance(len(p)); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Moved reports the bytes read or written since Open.
func (d *Device) Moved() int64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.moved
}

// advance accounts n bytes and sleeps until the stream position catches up
// with the wall clock.
func (d *Device) advance(n int) error {
	d.mtx.Lock()
	if !d.running {
		d.mtx.Unlock()
		return fmt.Errorf("null: %w", audio.ErrDeviceStopped)
	}

	d.moved += int64(n)
	// a caller that fell behind does not earn a burst
	if now := time.Now(); d.clock.Before(now) {
		d.clock = now
	}
	d.clock = d.clock.Add(time.Duration(n) * time.Second / time.Duration(d.cfg.BytesPerSecond()))
	deadline := d.clock
	d.mtx.Unlock()

	if d.paced {
		time.Sleep(time.Until(deadline))
	}

	return nil
}
