package cafs

import (
	"github.com/oneconcern/trellis/pkg/storage"
	"go.uber.org/zap"
)

// Option to configure content addressable FS components
type Option func(*defaultFs)

// Prefix sets a prefix on keys, which defines a namespace in the backend store
func Prefix(prefix string) Option {
	return func(w *defaultFs) {
		w.prefix = prefix
	}
}

// Backend specifies the backend store
func Backend(store storage.Store) Option {
	return func(w *defaultFs) {
		w.backend = store
	}
}

// Logger sets a logger for this store
func Logger(l *zap.Logger) Option {
	return func(w *defaultFs) {
		if l != nil {
			w.l = l
		}
	}
}

// CacheSize sets the number of objects retained in the LRU cache
func CacheSize(size int) Option {
	return func(w *defaultFs) {
		if size < 1 {
			size = DefaultCacheSize
		}
		w.lruSize = size
	}
}

// VerifyHash enables hash verification of objects read from the backend
func VerifyHash(enabled bool) Option {
	return func(w *defaultFs) {
		w.withVerifyHash = enabled
	}
}

// WithMetrics toggles metrics collection
func WithMetrics(enabled bool) Option {
	return func(w *defaultFs) {
		w.EnableMetrics(enabled)
	}
}
