// SPDX-License-Identifier: EPL-2.0

// Package engine runs playback and capture sessions on top of an
// audio.Platform.
//
// A Player owns one output device and a worker goroutine that repeatedly asks
// its PlaybackFunc for a buffer and writes it to the device. Start, Pause,
// Resume and Stop do not change the status themselves. They record a target
// and block until the worker has applied it. The worker applies a transition
// while rendering a buffer, so that buffer is faded in (Started, Resumed) or
// out (Paused, Stopped) and the change is never audible as a click.
//
//	p := engine.NewPlayer(platform, engine.WithLogger(log))
//	if err := p.Init(cfg); err != nil {
//		return err
//	}
//	defer p.Release()
//
//	p.SetDataCallback(engine.FromReader(pcm, nil))
//	p.Start()
//
// A Recorder owns one input device. Its worker fills the transfer buffer
// completely before handing it to the CaptureFunc, so every delivered buffer
// holds exactly Config.BufferSize bytes. Recorder transitions take effect
// immediately; Pause stops the device and Resume restarts it.
//
// Both engines are single use: after Stop the worker exits and tears the
// device down, and Release frees it. Release may be called in any status and
// more than once.
//
// Device errors never end a session. They are logged, counted on the
// audioio.device.errors instrument and followed by a short backoff.
package engine
