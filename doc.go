// SPDX-License-Identifier: EPL-2.0

// Package audioio streams raw PCM between sound devices and WAV files.
//
// The library is split into small packages:
//   - audio: stream configuration, status, transfer buffers and the
//     Platform/Device interfaces a backend implements
//   - engine: the Player and Recorder, each driving one device from a
//     dedicated worker goroutine
//   - formats/wav: a canonical 44-byte-header WAV container with streaming
//     reads and append-only writes
//   - utils: linear fades and sample conversion
//   - platform/portaudio and platform/null: backends
//
// # Quick Start
//
// Record five seconds from the default microphone:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	cfg := audio.Config{
//		SampleRate: 44100,
//		Channels:   1,
//		Format:     audio.FormatPCM16,
//		BufferSize: 4096,
//		Direction:  audio.Input,
//	}
//	res, err := audioio.RecordWAV(ctx, portaudio.New(), cfg, "take.wav")
//
// And play it back:
//
//	res, err = audioio.PlayWAV(context.Background(), portaudio.New(), "take.wav", 0)
//
// # Engines
//
// RecordWAV and PlayWAV are thin wrappers. For control over pausing or for a
// custom data source, drive an engine directly:
//
//	p := engine.NewPlayer(portaudio.New(), engine.WithLogger(log))
//	if err := p.Init(cfg); err != nil {
//		return err
//	}
//	defer p.Release()
//
//	p.SetDataCallback(engine.FromReader(src, nil))
//	p.Start()  // fades in
//	p.Pause()  // fades out, then pauses the device
//	p.Resume() // fades in again
//	p.Stop()
//
// # Thread Safety
//
// Engine control methods may be called from any goroutine. Data callbacks
// run on the engine's worker and must not call Stop, Pause or Release on the
// engine that invoked them.
package audioio
