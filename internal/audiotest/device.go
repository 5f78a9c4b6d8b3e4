// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ik5/audioio/audio"
)

// ErrInjected is returned by fake devices when a failure was requested.
var ErrInjected = errors.New("audiotest: injected device failure")

// Platform is an in-memory audio.Platform. Every device it opens is kept for
// inspection.
type Platform struct {
	// Float reports float support.
	Float bool
	// MinBuffer is returned by MinBufferSize. Zero means cfg.BufferSize.
	MinBuffer int
	// OpenErr makes Open fail.
	OpenErr error
	// Waveform feeds input devices. Nil means silence.
	Waveform Waveform
	// Latency is slept on every Read and Write to mimic a blocking device.
	Latency time.Duration
	// MaxRead caps the bytes returned by a single Read. Zero means no cap.
	MaxRead int

	mtx     sync.Mutex
	devices []*Device
}

// NewPlatform returns a fake platform with a small per-call latency.
func NewPlatform() *Platform {
	return &Platform{Latency: time.Millisecond}
}

func (p *Platform) Name() string        { return "audiotest" }
func (p *Platform) SupportsFloat() bool { return p.Float }

func (p *Platform) MinBufferSize(cfg audio.Config) (int, error) {
	if p.MinBuffer > 0 {
		return p.MinBuffer, nil
	}

	return cfg.BufferSize, nil
}

func (p *Platform) Open(cfg audio.Config, bufferSize int) (audio.Device, error) {
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}

	waveform := p.Waveform
	if waveform == nil {
		waveform = Silence()
	}

	d := &Device{
		cfg:        cfg,
		bufferSize: bufferSize,
		waveform:   waveform,
		latency:    p.Latency,
		maxRead:    p.MaxRead,
		calls:      make(map[string]int),
	}

	p.mtx.Lock()
	p.devices = append(p.devices, d)
	p.mtx.Unlock()

	return d, nil
}

// Devices returns every device opened so far.
func (p *Platform) Devices() []*Device {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return append([]*Device(nil), p.devices...)
}

// Last returns the most recently opened device, or nil.
func (p *Platform) Last() *Device {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if len(p.devices) == 0 {
		return nil
	}

	return p.devices[len(p.devices)-1]
}

// Device is an in-memory audio.Device. Input devices generate their
// waveform; output devices record every write.
type Device struct {
	cfg        audio.Config
	bufferSize int
	waveform   Waveform
	latency    time.Duration
	maxRead    int

	mtx        sync.Mutex
	running    bool
	released   bool
	frame      int
	failReads  int
	failWrites int
	calls      map[string]int
	written    bytes.Buffer
	writes     [][]byte
}

func (d *Device) Config() audio.Config { return d.cfg }
func (d *Device) BufferSize() int      { return d.bufferSize }

func (d *Device) Start() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.calls["start"]++
	d.running = true

	return nil
}

func (d *Device) Pause() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.calls["pause"]++
	d.running = false

	return nil
}

func (d *Device) Stop() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.calls["stop"]++
	if !d.running {
		return fmt.Errorf("%w: audiotest device", audio.ErrDeviceStopped)
	}
	d.running = false

	return nil
}

func (d *Device) Release() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.calls["release"]++
	d.running = false
	d.released = true

	return nil
}

func (d *Device) Read(p []byte) (int, error) {
	time.Sleep(d.latency)

	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.calls["read"]++

	if d.failReads > 0 {
		d.failReads--
		return 0, ErrInjected
	}

	if d.maxRead > 0 && len(p) > d.maxRead {
		p = p[:d.maxRead]
	}

	frames := Fill(p, d.cfg.Format, d.cfg.Channels, d.frame, d.waveform)
	d.frame += frames

	return frames * d.cfg.FrameSize(), nil
}

func (d *Device) Write(p []byte) (int, error) {
	time.Sleep(d.latency)

	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.calls["write"]++

	if d.failWrites > 0 {
		d.failWrites--
		return 0, ErrInjected
	}

	d.written.Write(p)
	d.writes = append(d.writes, append([]byte(nil), p...))

	return len(p), nil
}

// FailReads makes the next n reads fail with ErrInjected.
func (d *Device) FailReads(n int) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.failReads = n
}

// FailWrites makes the next n writes fail with ErrInjected.
func (d *Device) FailWrites(n int) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.failWrites = n
}

// Calls returns how many times op ("start", "pause", "read", "write",
// "stop", "release") was invoked.
func (d *Device) Calls(op string) int {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.calls[op]
}

func (d *Device) Running() bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.running
}

func (d *Device) Released() bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.released
}

// Written returns a copy of all bytes written so far.
func (d *Device) Written() []byte {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return bytes.Clone(d.written.Bytes())
}

// Writes returns a copy of each individual write.
func (d *Device) Writes() [][]byte {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	out := make([][]byte, len(d.writes))
	for i, w := range d.writes {
		out[i] = bytes.Clone(w)
	}

	return out
}
