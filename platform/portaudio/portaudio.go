// SPDX-License-Identifier: EPL-2.0

// Package portaudio is the audio platform backed by the system PortAudio
// library. Devices are blocking streams on the default input or output
// device.
package portaudio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/ik5/audioio/audio"
)

// Name is the registry name of the platform.
const Name = "portaudio"

// Platform opens PortAudio streams. Every device holds its own
// Initialize/Terminate pair, so no global setup is needed.
type Platform struct{}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) Name() string        { return Name }
func (p *Platform) SupportsFloat() bool { return true }

// MinBufferSize derives the smallest safe buffer from the default device's
// low latency hint, rounded up to whole frames.
func (p *Platform) MinBufferSize(cfg audio.Config) (int, error) {
	if err := pa.Initialize(); err != nil {
		return 0, fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer pa.Terminate()

	info, err := defaultDevice(cfg.Direction)
	if err != nil {
		return 0, err
	}

	latency := info.DefaultLowOutputLatency
	if cfg.Direction == audio.Input {
		latency = info.DefaultLowInputLatency
	}

	return minBufferBytes(latency.Seconds(), cfg), nil
}

// Open opens and leaves stopped a blocking stream whose host buffer holds
// bufferSize bytes.
func (p *Platform) Open(cfg audio.Config, bufferSize int) (audio.Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	frames := max(1, bufferSize/cfg.FrameSize())
	samples := frames * cfg.Channels

	d := &Device{cfg: cfg}

	var buf any
	switch cfg.Format {
	case audio.FormatFloat32:
		d.f32 = make([]float32, samples)
		buf = d.f32
	default:
		d.i16 = make([]int16, samples)
		buf = d.i16
	}
	d.raw = make([]byte, samples*cfg.Format.BytesPerSample())

	in, out := 0, cfg.Channels
	if cfg.Direction == audio.Input {
		in, out = cfg.Channels, 0
	}

	stream, err := pa.OpenDefaultStream(in, out, float64(cfg.SampleRate), frames, buf)
	if err != nil {
		_ = pa.Terminate()
		return nil, fmt.Errorf("portaudio: open %s stream: %w", cfg.Direction, err)
	}
	d.stream = stream

	return d, nil
}

func defaultDevice(dir audio.Direction) (*pa.DeviceInfo, error) {
	var (
		info *pa.DeviceInfo
		err  error
	)
	if dir == audio.Input {
		info, err = pa.DefaultInputDevice()
	} else {
		info, err = pa.DefaultOutputDevice()
	}
	if err != nil {
		return nil, fmt.Errorf("portaudio: no default %s device: %w", dir, err)
	}

	return info, nil
}

// minBufferBytes converts a latency in seconds to whole frames of cfg.
func minBufferBytes(latency float64, cfg audio.Config) int {
	frames := int(math.Ceil(latency * float64(cfg.SampleRate)))
	if frames <= 0 {
		return cfg.BufferSize
	}

	return frames * cfg.FrameSize()
}

// hostStream is the part of *pa.Stream a Device drives.
type hostStream interface {
	Start() error
	Stop() error
	Abort() error
	Close() error
	Read() error
	Write() error
}

// Device is one blocking PortAudio stream. Control calls may run
// concurrently with a blocked Read or Write.
type Device struct {
	cfg    audio.Config
	stream hostStream

	// i16 or f32 is the host buffer bound to the stream; raw is its byte
	// encoding and fill the valid prefix of raw still to be consumed (input)
	// or already staged (output). stage guards raw, fill and off.
	i16   []int16
	f32   []float32
	raw   []byte
	fill  int
	off   int
	stage sync.Mutex

	mtx      sync.Mutex
	running  bool
	released bool
}

func (d *Device) Start() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.released {
		return fmt.Errorf("portaudio: start: %w", audio.ErrDeviceStopped)
	}
	if d.running {
		return nil
	}

	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start: %w", err)
	}
	d.running = true

	return nil
}

// Pause stops the stream; PortAudio has no separate pause.
func (d *Device) Pause() error {
	return d.Stop()
}

// Stop plays out a partially staged output buffer, padded with silence, and
// stops the stream once it has drained.
func (d *Device) Stop() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if !d.running {
		return fmt.Errorf("portaudio: %w", audio.ErrDeviceStopped)
	}

	var flushErr error
	if d.cfg.Direction == audio.Output {
		d.stage.Lock()
		flushErr = d.flush()
		d.stage.Unlock()
	}
	d.running = false

	if err := d.stream.Stop(); err != nil {
		if errors.Is(err, pa.StreamIsStopped) {
			return fmt.Errorf("portaudio: %w: %w", audio.ErrDeviceStopped, err)
		}
		return fmt.Errorf("portaudio: stop: %w", err)
	}

	return flushErr
}

func (d *Device) Release() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.released {
		return nil
	}
	d.released = true

	if d.running {
		d.running = false
		_ = d.stream.Abort()
	}

	return errors.Join(d.stream.Close(), pa.Terminate())
}

func (d *Device) isRunning() bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.running
}

// Read copies captured bytes into p, reading one host buffer from the stream
// when none are left over. It returns whole frames only.
func (d *Device) Read(p []byte) (int, error) {
	if !d.isRunning() {
		return 0, fmt.Errorf("portaudio: read: %w", audio.ErrDeviceStopped)
	}

	d.stage.Lock()
	defer d.stage.Unlock()

	if d.off >= d.fill {
		if err := d.stream.Read(); err != nil && !errors.Is(err, pa.InputOverflowed) {
			return 0, fmt.Errorf("portaudio: read: %w", err)
		}
		d.fill = d.encode()
		d.off = 0
	}

	n := copy(p, d.raw[d.off:d.fill])
	n -= n % d.cfg.FrameSize()
	d.off += n

	return n, nil
}

// Write stages p into the host buffer and writes it to the stream every time
// it fills up. A partial buffer stays staged until the next Write or Stop.
func (d *Device) Write(p []byte) (int, error) {
	if !d.isRunning() {
		return 0, fmt.Errorf("portaudio: write: %w", audio.ErrDeviceStopped)
	}

	d.stage.Lock()
	defer d.stage.Unlock()

	total := 0
	for len(p) > 0 {
		n := copy(d.raw[d.fill:], p)
		d.fill += n
		total += n
		p = p[n:]

		if d.fill < len(d.raw) {
			break
		}

		d.fill = 0
		if err := d.writeHost(); err != nil {
			return total, err
		}
	}

	return total, nil
}

// flush pads the staged partial buffer with silence and writes it. d.stage
// must be held.
func (d *Device) flush() error {
	if d.fill == 0 {
		return nil
	}

	clear(d.raw[d.fill:])
	d.fill = 0

	return d.writeHost()
}

// writeHost writes the whole of raw to the stream.
func (d *Device) writeHost() error {
	d.decode()
	if err := d.stream.Write(); err != nil && !errors.Is(err, pa.OutputUnderflowed) {
		return fmt.Errorf("portaudio: write: %w", err)
	}

	return nil
}

// encode converts the host buffer to little-endian bytes in raw.
func (d *Device) encode() int {
	if d.f32 != nil {
		for i, v := range d.f32 {
			binary.LittleEndian.PutUint32(d.raw[i*4:], math.Float32bits(v))
		}
		return len(d.f32) * 4
	}

	for i, v := range d.i16 {
		binary.LittleEndian.PutUint16(d.raw[i*2:], uint16(v))
	}
	return len(d.i16) * 2
}

// decode converts raw into the host buffer.
func (d *Device) decode() {
	if d.f32 != nil {
		for i := range d.f32 {
			d.f32[i] = math.Float32frombits(binary.LittleEndian.Uint32(d.raw[i*4:]))
		}
		return
	}

	for i := range d.i16 {
		d.i16[i] = int16(binary.LittleEndian.Uint16(d.raw[i*2:]))
	}
}
