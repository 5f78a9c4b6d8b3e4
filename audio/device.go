// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"sort"
	"sync"
)

// Device is an opened PCM sink or source owned by exactly one engine.
type Device interface {
	// Start begins (or restarts) streaming.
	Start() error
	// Pause halts streaming without discarding the device.
	Pause() error
	// Read fills p with captured bytes. Short reads are allowed.
	Read(p []byte) (int, error)
	// Write queues p for playback. Short writes are allowed.
	Write(p []byte) (int, error)
	// Stop halts streaming. Returns an error wrapping ErrDeviceStopped when
	// the device was not running.
	Stop() error
	// Release frees the device. It must be called exactly once.
	Release() error
}

// Platform opens devices on a concrete audio backend.
type Platform interface {
	Name() string
	// SupportsFloat reports whether FormatFloat32 streams can be opened.
	SupportsFloat() bool
	// MinBufferSize is the smallest safe device buffer, in bytes, for cfg.
	MinBufferSize(cfg Config) (int, error)
	// Open opens a device for cfg.Direction using a device buffer of
	// bufferSize bytes.
	Open(cfg Config, bufferSize int) (Device, error)
}

// Registry for platforms by backend name (e.g., "portaudio", "null").
type Registry struct {
	platforms map[string]Platform

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		platforms: make(map[string]Platform),
		mtx:       &sync.Mutex{},
	}
}

func (r *Registry) Register(p Platform) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.platforms[p.Name()] = p
}

func (r *Registry) Get(name string) (Platform, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	p, ok := r.platforms[name]
	return p, ok
}

// Lookup is Get returning ErrUnknownPlatform for missing names.
func (r *Registry) Lookup(name string) (Platform, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}

	return p, nil
}

// Names lists registered platforms in sorted order.
func (r *Registry) Names() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	names := make([]string, 0, len(r.platforms))
	for n := range r.platforms {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}
