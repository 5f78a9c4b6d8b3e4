// SPDX-License-Identifier: EPL-2.0

// Package audio provides the core types shared by the streaming engines,
// the platform backends and the WAV container.
//
// # Stream Configuration
//
// A Config describes one session:
//
//	cfg := audio.Config{
//	    SampleRate: 44100,
//	    Channels:   1,
//	    Format:     audio.FormatPCM16,
//	    BufferSize: 1024,
//	    Direction:  audio.Input,
//	}
//	if err := cfg.Validate(); err != nil {
//	    // errors.Is(err, audio.ErrInvalidConfig) == true
//	}
//
// BufferSize is measured in bytes and must be a positive multiple of the
// frame size (Channels * BytesPerSample). Invalid values are rejected, never
// truncated.
//
// # Lifecycle
//
// Engines move through a closed set of statuses:
//
//	Uninitiated -> Initiated -> Started -> {Paused <-> Resumed} -> Stopped
//
// Stopped is terminal.
//
// # Platforms and Devices
//
// A Platform opens Devices for a Config. A Device is a sink (Output) or a
// source (Input) with Start, Pause, Read, Write, Stop and Release. Backends
// live under platform/ and are looked up through a Registry:
//
//	registry := audio.NewRegistry()
//	registry.Register(null.New())
//	p, err := registry.Lookup("null")
//
// # Buffers
//
// A Buffer is a fixed-capacity byte region reused across transfers. Fill
// Data() and call SetLen, or read Bytes():
//
//	n := copy(buf.Data(), pcm)
//	buf.SetLen(n)
package audio
