// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/ik5/audioio/internal/observe"
)

const (
	// DefaultAckInterval is how often a blocked control call logs while
	// waiting for the worker to apply a transition.
	DefaultAckInterval = time.Second
	// DefaultJoinTimeout bounds how long Release waits for the worker.
	DefaultJoinTimeout = time.Second
	// DefaultIdleBackoff is slept when an iteration moved no data.
	DefaultIdleBackoff = 5 * time.Millisecond
)

type options struct {
	logger        *zap.Logger
	meterProvider metric.MeterProvider
	ackInterval   time.Duration
	joinTimeout   time.Duration
	idleBackoff   time.Duration
}

// Option configures an engine.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeterProvider records engine metrics on mp instead of the global
// provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithAckInterval sets the warning interval of blocked control calls.
func WithAckInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ackInterval = d
		}
	}
}

// WithJoinTimeout sets the bound on waiting for the worker to exit.
func WithJoinTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.joinTimeout = d
		}
	}
}

// WithIdleBackoff sets the pause after an iteration that moved no data.
func WithIdleBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleBackoff = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:      zap.NewNop(),
		ackInterval: DefaultAckInterval,
		joinTimeout: DefaultJoinTimeout,
		idleBackoff: DefaultIdleBackoff,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// metrics builds the instruments, falling back to the global ones when the
// configured provider rejects them.
func (o options) metrics() *observe.Metrics {
	if o.meterProvider == nil {
		return observe.DefaultMetrics()
	}

	m, err := observe.NewMetrics(o.meterProvider)
	if err != nil {
		o.logger.Warn("cannot create metrics, using global provider", zap.Error(err))
		return observe.DefaultMetrics()
	}

	return m
}
