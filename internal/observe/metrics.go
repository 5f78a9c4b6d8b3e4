// SPDX-License-Identifier: EPL-2.0

// Package observe holds the OpenTelemetry instruments recorded by the
// streaming engines.
//
// Instruments are created from a [metric.MeterProvider]. Tests should pass a
// provider backed by a ManualReader; production code uses
// [DefaultMetrics], which reads the global provider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ik5/audioio"

// Metrics holds the engine instruments. All fields are safe for concurrent use.
type Metrics struct {
	// StreamBytes counts PCM bytes moved through a device. Attributes:
	//   attribute.String("direction", ...)
	StreamBytes metric.Int64Counter

	// Transitions counts applied status changes. Attributes:
	//   attribute.String("direction", ...), attribute.String("status", ...)
	Transitions metric.Int64Counter

	// TransitionWait tracks how long a control call waited for the worker to
	// apply a transition.
	TransitionWait metric.Float64Histogram

	// EmptyCallbacks counts callback invocations that produced no data.
	EmptyCallbacks metric.Int64Counter

	// DeviceErrors counts failed device calls. Attributes:
	//   attribute.String("direction", ...), attribute.String("op", ...)
	DeviceErrors metric.Int64Counter

	// ActiveStreams tracks streams with a running worker.
	ActiveStreams metric.Int64UpDownCounter
}

var waitBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StreamBytes, err = m.Int64Counter("audioio.stream.bytes",
		metric.WithDescription("PCM bytes moved through a device by direction."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.Transitions, err = m.Int64Counter("audioio.stream.transitions",
		metric.WithDescription("Applied status transitions by direction and status."),
	); err != nil {
		return nil, err
	}
	if met.TransitionWait, err = m.Float64Histogram("audioio.stream.transition_wait",
		metric.WithDescription("Time a control call waited for the worker to apply a transition."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(waitBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmptyCallbacks, err = m.Int64Counter("audioio.stream.empty_callbacks",
		metric.WithDescription("Playback callbacks that produced no data."),
	); err != nil {
		return nil, err
	}
	if met.DeviceErrors, err = m.Int64Counter("audioio.device.errors",
		metric.WithDescription("Failed device calls by direction and operation."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("audioio.active_streams",
		metric.WithDescription("Number of streams with a running worker."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] built from
// [otel.GetMeterProvider]. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordBytes(ctx context.Context, direction string, n int) {
	m.StreamBytes.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("direction", direction)),
	)
}

func (m *Metrics) RecordTransition(ctx context.Context, direction, status string) {
	m.Transitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("direction", direction),
			attribute.String("status", status),
		),
	)
}

func (m *Metrics) RecordTransitionWait(ctx context.Context, status string, d time.Duration) {
	m.TransitionWait.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
}

func (m *Metrics) RecordEmptyCallback(ctx context.Context, direction string) {
	m.EmptyCallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("direction", direction)),
	)
}

func (m *Metrics) RecordDeviceError(ctx context.Context, direction, op string) {
	m.DeviceErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("direction", direction),
			attribute.String("op", op),
		),
	)
}

// StreamStarted and StreamStopped move the active stream gauge.
func (m *Metrics) StreamStarted(ctx context.Context, direction string) {
	m.ActiveStreams.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

func (m *Metrics) StreamStopped(ctx context.Context, direction string) {
	m.ActiveStreams.Add(ctx, -1, metric.WithAttributes(attribute.String("direction", direction)))
}
