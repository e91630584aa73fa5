package services

import (
	"time"

	"punchcard_backend/internal/metrics"
)

// Option customises the shared plumbing of a service.
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *metrics.Metrics
}

func newOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces time.Now, for tests that need to move time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
