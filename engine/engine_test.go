// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ik5/audioio/audio"
	"github.com/ik5/audioio/internal/audiotest"
	"github.com/ik5/audioio/utils"
)

const waitFor = time.Second

func playbackConfig() audio.Config {
	return audio.Config{
		SampleRate: 8000,
		Channels:   1,
		Format:     audio.FormatPCM16,
		BufferSize: 256,
		Direction:  audio.Output,
	}
}

func captureConfig() audio.Config {
	return audio.Config{
		SampleRate: 44100,
		Channels:   1,
		Format:     audio.FormatPCM16,
		BufferSize: 1024,
		Direction:  audio.Input,
	}
}

// testOptions wires an observed logger and a manual metric reader.
type testOptions struct {
	logs   *observer.ObservedLogs
	reader *sdkmetric.ManualReader
	opts   []Option
}

func newTestOptions(t *testing.T) testOptions {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	return testOptions{
		logs:   logs,
		reader: reader,
		opts: []Option{
			WithLogger(zap.New(core)),
			WithMeterProvider(mp),
			WithIdleBackoff(time.Millisecond),
		},
	}
}

// counter sums every data point of an int64 sum instrument.
func (o testOptions) counter(t *testing.T, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, o.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %q is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}

	return total
}

// sample decodes the PCM16 sample at frame f of a mono buffer.
func sample(b []byte, f int) float32 {
	return utils.SampleAt(b[f*2:], audio.FormatPCM16)
}

func constantPlayback(value float32) PlaybackFunc {
	return func(buf *audio.Buffer) {
		frames := audiotest.Fill(buf.Data(), audio.FormatPCM16, 1, 0, audiotest.Constant(value))
		buf.SetLen(frames * 2)
	}
}
