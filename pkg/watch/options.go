package watch

import (
	"go.uber.org/zap"
)

// DefaultWorkers is the default size of the dispatch pool
const DefaultWorkers = 4

// Option configures a watch hub
type Option func(*options)

type options struct {
	l       *zap.Logger
	workers int
	metrics bool
}

func defaultOptions() options {
	return options{
		l:       zap.NewNop(),
		workers: DefaultWorkers,
	}
}

// Logger sets the logger of the hub
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}

// Workers sets the number of dispatching goroutines
func Workers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithMetrics toggles metrics collection
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metrics = enabled
	}
}
