// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audioio/audio"
	"github.com/ik5/audioio/internal/audiotest"
)

func startedPlayer(t *testing.T, value float32) (*Player, *audiotest.Device, testOptions) {
	t.Helper()

	to := newTestOptions(t)
	platform := audiotest.NewPlatform()
	p := NewPlayer(platform, to.opts...)
	t.Cleanup(p.Release)

	require.NoError(t, p.Init(playbackConfig()))
	p.SetDataCallback(constantPlayback(value))
	p.Start()

	return p, platform.Last(), to
}

func TestPlayer_Init(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*audio.Config)
		platform func() *audiotest.Platform
		want     error
	}{
		{"valid", func(*audio.Config) {}, audiotest.NewPlatform, nil},
		{"stereo", func(c *audio.Config) { c.Channels = 2 }, audiotest.NewPlatform, nil},
		{"zero buffer", func(c *audio.Config) { c.BufferSize = 0 }, audiotest.NewPlatform, audio.ErrInvalidBufferSize},
		{"negative buffer", func(c *audio.Config) { c.BufferSize = -1 }, audiotest.NewPlatform, audio.ErrInvalidBufferSize},
		{"capture config", func(c *audio.Config) { c.Direction = audio.Input }, audiotest.NewPlatform, audio.ErrInvalidDirection},
		{"float unsupported", func(c *audio.Config) { c.Format = audio.FormatFloat32 }, audiotest.NewPlatform, audio.ErrUnsupportedFormat},
		{"float supported", func(c *audio.Config) { c.Format = audio.FormatFloat32 }, func() *audiotest.Platform {
			p := audiotest.NewPlatform()
			p.Float = true
			return p
		}, nil},
		{"open fails", func(*audio.Config) {}, func() *audiotest.Platform {
			p := audiotest.NewPlatform()
			p.OpenErr = audiotest.ErrInjected
			return p
		}, ErrOpenDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := playbackConfig()
			tt.mutate(&cfg)

			p := NewPlayer(tt.platform())
			err := p.Init(cfg)

			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, audio.StatusInitiated, p.Status())
				assert.Equal(t, cfg, p.Config())
				p.Release()
				return
			}

			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, audio.StatusUninitiated, p.Status())
			assert.Panics(t, p.Start, "Start after failed Init")
		})
	}
}

func TestPlayer_InitTwice(t *testing.T) {
	t.Parallel()

	p := NewPlayer(audiotest.NewPlatform())
	require.NoError(t, p.Init(playbackConfig()))
	defer p.Release()

	require.ErrorIs(t, p.Init(playbackConfig()), ErrAlreadyInitialized)
}

func TestPlayer_OpensWithPlatformMinimum(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	platform.MinBuffer = 4096

	p := NewPlayer(platform)
	require.NoError(t, p.Init(playbackConfig()))
	defer p.Release()

	assert.Equal(t, 4096, platform.Last().BufferSize())
	assert.Equal(t, 256, p.buf.Cap())
}

func TestPlayer_StartPanicsUnlessInitiated(t *testing.T) {
	t.Parallel()

	assert.Panics(t, NewPlayer(audiotest.NewPlatform()).Start, "Start before Init")

	p, _, _ := startedPlayer(t, 0.5)
	assert.Panics(t, p.Start, "second Start")

	p.Stop()
	assert.Panics(t, p.Start, "Start after Stop")
}

func TestPlayer_StartFadesIn(t *testing.T) {
	t.Parallel()

	p, dev, _ := startedPlayer(t, 0.5)

	assert.Equal(t, audio.StatusStarted, p.Status())
	assert.Equal(t, 1, dev.Calls("start"))

	writes := dev.Writes()
	require.NotEmpty(t, writes, "Start returned before the first buffer was written")

	first := writes[0]
	frames := len(first) / 2
	assert.Zero(t, sample(first, 0))
	assert.InDelta(t, 0.5, sample(first, frames-1), 0.001)
	assert.Less(t, sample(first, frames/4), sample(first, frames/2))
}

func TestPlayer_PauseFadesOutAndHolds(t *testing.T) {
	t.Parallel()

	p, dev, _ := startedPlayer(t, 0.5)

	p.Pause()
	assert.Equal(t, audio.StatusPaused, p.Status())
	assert.Equal(t, 1, dev.Calls("pause"))

	writes := dev.Writes()
	last := writes[len(writes)-1]
	frames := len(last) / 2
	assert.InDelta(t, 0.5, sample(last, 0), 0.001)
	assert.Zero(t, sample(last, frames-1))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, len(writes), len(dev.Writes()), "worker wrote while paused")

	// pausing again is a no-op
	p.Pause()
	assert.Equal(t, 1, dev.Calls("pause"))
}

func TestPlayer_ResumeFadesInAndContinues(t *testing.T) {
	t.Parallel()

	p, dev, _ := startedPlayer(t, 0.5)

	p.Pause()
	before := len(dev.Writes())

	p.Resume()
	assert.Equal(t, audio.StatusResumed, p.Status())
	assert.Equal(t, 2, dev.Calls("start"))

	writes := dev.Writes()
	require.Greater(t, len(writes), before)
	assert.Zero(t, sample(writes[before], 0), "first buffer after resume is not faded in")

	assert.Eventually(t, func() bool {
		return len(dev.Writes()) > before+3
	}, waitFor, time.Millisecond)

	// resuming while running is a no-op
	p.Resume()
	assert.Equal(t, 2, dev.Calls("start"))
}

func TestPlayer_NoOpsOutOfOrder(t *testing.T) {
	t.Parallel()

	p := NewPlayer(audiotest.NewPlatform())
	p.Pause()
	p.Resume()
	p.Stop()
	assert.Equal(t, audio.StatusUninitiated, p.Status())

	platform := audiotest.NewPlatform()
	p = NewPlayer(platform)
	require.NoError(t, p.Init(playbackConfig()))
	defer p.Release()

	p.Pause()
	assert.Equal(t, audio.StatusInitiated, p.Status())
	p.Resume()
	assert.Equal(t, audio.StatusInitiated, p.Status())
	p.Stop()
	assert.Equal(t, audio.StatusInitiated, p.Status())
	assert.Zero(t, platform.Last().Calls("pause"))
}

func TestPlayer_StopExitsWorker(t *testing.T) {
	t.Parallel()

	p, dev, _ := startedPlayer(t, 0.5)

	begin := time.Now()
	p.Stop()

	assert.Equal(t, audio.StatusStopped, p.Status())

	writes := dev.Writes()
	last := writes[len(writes)-1]
	assert.Zero(t, sample(last, len(last)/2-1), "stop buffer is not faded out")

	assert.Eventually(t, dev.Released, waitFor, time.Millisecond)
	assert.Less(t, time.Since(begin), waitFor)

	// second stop is a no-op
	p.Stop()
	assert.Equal(t, 1, dev.Calls("stop"))
}

func TestPlayer_StopWhilePaused(t *testing.T) {
	t.Parallel()

	p, dev, to := startedPlayer(t, 0.5)

	p.Pause()
	writes := len(dev.Writes())

	p.Stop()
	assert.Equal(t, audio.StatusStopped, p.Status())
	assert.Eventually(t, dev.Released, waitFor, time.Millisecond)
	assert.Equal(t, writes, len(dev.Writes()), "rendered after a paused stop")

	// the paused device reports it was not running; teardown only logs it
	assert.Eventually(t, func() bool {
		return to.logs.FilterMessage("device already stopped").Len() == 1
	}, waitFor, time.Millisecond)
	assert.Zero(t, to.counter(t, "audioio.device.errors"))
}

func TestPlayer_ReleaseNeverStarted(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	p := NewPlayer(platform)
	require.NoError(t, p.Init(playbackConfig()))

	p.Release()

	dev := platform.Last()
	assert.True(t, dev.Released())
	assert.Zero(t, dev.Calls("stop"))
	assert.Equal(t, audio.StatusStopped, p.Status())

	p.Release()
	assert.Equal(t, 1, dev.Calls("release"))
}

func TestPlayer_ReleaseBeforeInit(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	p := NewPlayer(platform)

	p.Release()
	assert.Equal(t, audio.StatusUninitiated, p.Status())

	require.NoError(t, p.Init(playbackConfig()))
	p.SetDataCallback(constantPlayback(0.25))
	p.Start()
	p.Release()

	dev := platform.Last()
	assert.True(t, dev.Released(), "device leaked after an early Release")
	assert.Equal(t, audio.StatusStopped, p.Status())
	assert.Equal(t, 1, dev.Calls("release"))
}

func TestPlayer_ReleaseJoinsWorker(t *testing.T) {
	t.Parallel()

	p, dev, _ := startedPlayer(t, 0.25)

	begin := time.Now()
	p.Release()

	assert.Less(t, time.Since(begin), waitFor)
	assert.True(t, dev.Released(), "Release returned before teardown")
	assert.Equal(t, audio.StatusStopped, p.Status())

	p.Release()
	assert.Equal(t, 1, dev.Calls("release"))
}

func TestPlayer_EmptyCallback(t *testing.T) {
	t.Parallel()

	to := newTestOptions(t)
	platform := audiotest.NewPlatform()
	p := NewPlayer(platform, to.opts...)
	require.NoError(t, p.Init(playbackConfig()))

	// no callback at all: transitions must still be acknowledged
	p.Start()
	assert.Equal(t, audio.StatusStarted, p.Status())

	p.Pause()
	assert.Equal(t, audio.StatusPaused, p.Status())

	p.Resume()
	p.Stop()
	assert.Equal(t, audio.StatusStopped, p.Status())

	p.Release()
	assert.Empty(t, platform.Last().Writes())
}

func TestPlayer_EmptyCallbackBacksOff(t *testing.T) {
	t.Parallel()

	to := newTestOptions(t)
	p := NewPlayer(audiotest.NewPlatform(), append(to.opts, WithIdleBackoff(10*time.Millisecond))...)
	require.NoError(t, p.Init(playbackConfig()))
	defer p.Release()

	var mtx sync.Mutex
	calls := 0
	p.SetDataCallback(func(*audio.Buffer) {
		mtx.Lock()
		calls++
		mtx.Unlock()
	})

	p.Start()
	time.Sleep(100 * time.Millisecond)
	p.Stop()

	mtx.Lock()
	defer mtx.Unlock()
	assert.Less(t, calls, 30, "worker spun on an empty callback")
	assert.Positive(t, to.counter(t, "audioio.stream.empty_callbacks"))
}

func TestPlayer_WriteErrorsAreNotFatal(t *testing.T) {
	t.Parallel()

	p, dev, to := startedPlayer(t, 0.5)

	before := len(dev.Writes())
	dev.FailWrites(3)

	assert.Eventually(t, func() bool {
		return len(dev.Writes()) > before+2
	}, waitFor, time.Millisecond)

	assert.Equal(t, audio.StatusStarted, p.Status())
	assert.EqualValues(t, 3, to.counter(t, "audioio.device.errors"))
}

func TestPlayer_Metrics(t *testing.T) {
	t.Parallel()

	p, _, to := startedPlayer(t, 0.5)

	p.Pause()
	p.Resume()
	p.Stop()

	assert.EqualValues(t, 4, to.counter(t, "audioio.stream.transitions"))
	assert.Positive(t, to.counter(t, "audioio.stream.bytes"))

	p.Release()
	assert.Zero(t, to.counter(t, "audioio.active_streams"))
}

func TestPlayer_ConcurrentControl(t *testing.T) {
	t.Parallel()

	p, dev, _ := startedPlayer(t, 0.5)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				switch i % 3 {
				case 0:
					p.Pause()
				case 1:
					p.Resume()
				default:
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}

	wg.Wait()

	p.Stop()
	p.Release()

	assert.True(t, dev.Released())
	assert.Equal(t, audio.StatusStopped, p.Status())
}

func TestPlayer_InitErrorIsConfigError(t *testing.T) {
	t.Parallel()

	cfg := playbackConfig()
	cfg.BufferSize = 255

	err := NewPlayer(audiotest.NewPlatform()).Init(cfg)
	assert.True(t, errors.Is(err, audio.ErrInvalidConfig))
}
