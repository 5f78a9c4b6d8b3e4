// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audioio/audio"
	"github.com/ik5/audioio/internal/audiotest"
)

// capture collects delivered buffers.
type capture struct {
	mtx   sync.Mutex
	sizes []int
	data  bytes.Buffer
}

func (c *capture) callback(buf *audio.Buffer) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.sizes = append(c.sizes, buf.Len())
	c.data.Write(buf.Bytes())
}

func (c *capture) total() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.data.Len()
}

func (c *capture) count() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return len(c.sizes)
}

func newRecorder(t *testing.T, platform *audiotest.Platform) (*Recorder, *capture, testOptions) {
	t.Helper()

	to := newTestOptions(t)
	r := NewRecorder(platform, to.opts...)
	t.Cleanup(r.Release)

	require.NoError(t, r.Init(captureConfig()))

	c := &capture{}
	r.SetDataCallback(c.callback)

	return r, c, to
}

func TestRecorder_CaptureScenario(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	platform.Waveform = audiotest.Sine(44100, 440)

	r, c, _ := newRecorder(t, platform)

	r.Start()
	assert.Equal(t, audio.StatusStarted, r.Status())

	assert.Eventually(t, func() bool { return c.total() >= 1024 }, waitFor, time.Millisecond)

	begin := time.Now()
	r.Stop()
	r.Release()

	assert.Less(t, time.Since(begin), waitFor)

	dev := platform.Last()
	assert.True(t, dev.Released(), "device not released after Release")
	select {
	case <-r.done:
	default:
		t.Fatal("worker still running after Release")
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()
	for i, n := range c.sizes {
		assert.Equal(t, 1024, n, "buffer %d", i)
	}
	assert.NotEqual(t, make([]byte, 1024), c.data.Bytes()[:1024], "captured only silence")
}

func TestRecorder_AccumulatesShortReads(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	platform.MaxRead = 100
	platform.Latency = 0
	platform.Waveform = audiotest.Constant(0.25)

	r, c, _ := newRecorder(t, platform)

	r.Start()
	assert.Eventually(t, func() bool { return c.count() >= 3 }, waitFor, time.Millisecond)
	r.Stop()
	r.Release()

	c.mtx.Lock()
	defer c.mtx.Unlock()
	for i, n := range c.sizes {
		assert.Equal(t, 1024, n, "buffer %d", i)
	}
	assert.GreaterOrEqual(t, platform.Last().Calls("read"), 3*11)
}

func TestRecorder_ReadErrorsDropBuffer(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	r, c, to := newRecorder(t, platform)

	platform.Last().FailReads(2)

	r.Start()
	assert.Eventually(t, func() bool { return c.count() >= 2 }, waitFor, time.Millisecond)

	assert.Equal(t, audio.StatusStarted, r.Status(), "read errors ended the session")
	assert.EqualValues(t, 2, to.counter(t, "audioio.device.errors"))

	c.mtx.Lock()
	for i, n := range c.sizes {
		assert.Equal(t, 1024, n, "buffer %d", i)
	}
	c.mtx.Unlock()
}

func TestRecorder_PauseResume(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	r, c, _ := newRecorder(t, platform)
	dev := platform.Last()

	r.Start()
	assert.Eventually(t, func() bool { return c.count() >= 1 }, waitFor, time.Millisecond)

	r.Pause()
	assert.Equal(t, audio.StatusPaused, r.Status())
	assert.Equal(t, 1, dev.Calls("stop"))

	// at most the read in flight completes after Pause
	time.Sleep(20 * time.Millisecond)
	held := c.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, held, c.count(), "buffers delivered while paused")

	r.Resume()
	assert.Equal(t, audio.StatusResumed, r.Status())
	assert.Equal(t, 2, dev.Calls("start"))
	assert.Eventually(t, func() bool { return c.count() > held }, waitFor, time.Millisecond)
}

func TestRecorder_StartTransitions(t *testing.T) {
	t.Parallel()

	assert.Panics(t, NewRecorder(audiotest.NewPlatform()).Start, "Start before Init")

	platform := audiotest.NewPlatform()
	r, _, _ := newRecorder(t, platform)

	r.Start()
	r.Start()
	assert.Equal(t, audio.StatusStarted, r.Status(), "second Start is a no-op")

	r.Pause()
	r.Start()
	assert.Equal(t, audio.StatusResumed, r.Status(), "Start while paused resumes")

	r.Start()
	assert.Equal(t, audio.StatusResumed, r.Status())

	r.Stop()
	assert.Panics(t, r.Start, "Start after Stop")
}

func TestRecorder_StopWhilePaused(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	r, _, to := newRecorder(t, platform)

	r.Start()
	r.Pause()
	r.Stop()
	assert.Equal(t, audio.StatusStopped, r.Status())

	dev := platform.Last()
	assert.Eventually(t, dev.Released, waitFor, time.Millisecond)
	assert.Eventually(t, func() bool {
		return to.logs.FilterMessage("device already stopped").Len() == 1
	}, waitFor, time.Millisecond)
}

func TestRecorder_NoOpsOutOfOrder(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	r, _, _ := newRecorder(t, platform)

	r.Pause()
	r.Resume()
	r.Stop()
	assert.Equal(t, audio.StatusInitiated, r.Status())

	dev := platform.Last()
	assert.Zero(t, dev.Calls("stop"))
	assert.Zero(t, dev.Calls("start"))
}

func TestRecorder_ReleaseNeverStarted(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	r, _, _ := newRecorder(t, platform)

	r.Release()

	dev := platform.Last()
	assert.True(t, dev.Released())
	assert.Zero(t, dev.Calls("read"))
	assert.Equal(t, audio.StatusStopped, r.Status())
	assert.Nil(t, r.callback)

	r.Release()
	assert.Equal(t, 1, dev.Calls("release"))
}

func TestRecorder_ReleaseBeforeInit(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	r := NewRecorder(platform)

	r.Release()
	assert.Equal(t, audio.StatusUninitiated, r.Status())

	require.NoError(t, r.Init(captureConfig()))
	c := &capture{}
	r.SetDataCallback(c.callback)
	r.Start()
	r.Release()

	dev := platform.Last()
	assert.True(t, dev.Released(), "device leaked after an early Release")
	assert.Equal(t, audio.StatusStopped, r.Status())
	assert.Equal(t, 1, dev.Calls("release"))
}

func TestRecorder_ReleaseClearsCallback(t *testing.T) {
	t.Parallel()

	platform := audiotest.NewPlatform()
	r, _, _ := newRecorder(t, platform)

	r.Start()
	r.Release()

	r.mtx.Lock()
	assert.Nil(t, r.callback)
	r.mtx.Unlock()

	assert.True(t, platform.Last().Released())
	assert.Equal(t, audio.StatusStopped, r.Status())

	r.Release()
	assert.Equal(t, 1, platform.Last().Calls("release"))
}

func TestRecorder_InitValidation(t *testing.T) {
	t.Parallel()

	r := NewRecorder(audiotest.NewPlatform())

	cfg := captureConfig()
	cfg.Direction = audio.Output
	require.ErrorIs(t, r.Init(cfg), audio.ErrInvalidDirection)

	cfg = captureConfig()
	cfg.BufferSize = 0
	require.ErrorIs(t, r.Init(cfg), audio.ErrInvalidBufferSize)
	assert.Equal(t, audio.StatusUninitiated, r.Status())

	require.NoError(t, r.Init(captureConfig()))
	require.ErrorIs(t, r.Init(captureConfig()), ErrAlreadyInitialized)
	r.Release()
}
