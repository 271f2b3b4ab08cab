package bdgr

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the badger backend
type Option func(*options)

type options struct {
	dir         string
	inMemory    bool
	prefix      string
	l           *zap.Logger
	retryPeriod time.Duration
	maxRetry    time.Duration
	compactors  int
}

func defaultOptions() options {
	return options{
		l:           zap.NewNop(),
		retryPeriod: 10 * time.Millisecond,
		maxRetry:    30 * time.Second,
		compactors:  4,
	}
}

// WithDir sets the directory holding the badger database
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithInMemory runs badger in-memory, without persistence
func WithInMemory(enabled bool) Option {
	return func(o *options) {
		o.inMemory = enabled
	}
}

// WithPrefix isolates the keys of a store under some prefix, so several
// stores may share the same database
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithLogger sets the logger for the store and for badger internals
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}

// WithRetry tunes the retry policy on transaction conflicts
func WithRetry(period, maxElapsed time.Duration) Option {
	return func(o *options) {
		o.retryPeriod = period
		o.maxRetry = maxElapsed
	}
}

// WithNumCompactors sets the number of badger compaction workers
func WithNumCompactors(n int) Option {
	return func(o *options) {
		if n > 1 {
			o.compactors = n
		}
	}
}
