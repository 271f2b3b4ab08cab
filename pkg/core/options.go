package core

import (
	"time"

	"github.com/oneconcern/trellis/pkg/branch"
	"github.com/oneconcern/trellis/pkg/merge"
	"github.com/oneconcern/trellis/pkg/model"
	"github.com/oneconcern/trellis/pkg/storage"
	"go.uber.org/zap"
)

const (
	// DefaultMaxDepth bounds the depth of searches for common ancestors
	DefaultMaxDepth = 256

	// DefaultMaxLcas bounds the number of common ancestors
	DefaultMaxLcas = 16

	// DefaultRetryTimeout bounds the time spent retrying optimistic updates
	DefaultRetryTimeout = 30 * time.Second

	namespaceContents = "contents/"
	namespaceTrees    = "trees/"
	namespaceCommits  = "commits/"
)

// Option configures a repository
type Option func(*Repo)

// Storage sets the backend store for objects. It defaults to an in-memory store.
func Storage(store storage.Store) Option {
	return func(r *Repo) {
		r.store = store
	}
}

// Branches sets the branch table. It defaults to an in-memory table.
func Branches(table branch.Table) Option {
	return func(r *Repo) {
		r.table = table
	}
}

// Logger sets the logger of the repository
func Logger(l *zap.Logger) Option {
	return func(r *Repo) {
		if l != nil {
			r.l = l
		}
	}
}

// ContentsMerge sets the merge function used for all contents
func ContentsMerge(m merge.Merge[[]byte]) Option {
	return func(r *Repo) {
		if m != nil {
			r.mergers = merge.NewRegistry(m)
		}
	}
}

// MergeRegistry sets merge functions for contents by path
func MergeRegistry(registry *merge.Registry[[]byte]) Option {
	return func(r *Repo) {
		if registry != nil {
			r.mergers = registry
		}
	}
}

// MaxDepth bounds the search for common ancestors during merges
func MaxDepth(depth int) Option {
	return func(r *Repo) {
		r.maxDepth = depth
	}
}

// MaxLcas bounds the number of common ancestors during merges
func MaxLcas(n int) Option {
	return func(r *Repo) {
		r.maxLcas = n
	}
}

// WatchWorkers sets the number of goroutines dispatching watch notifications
func WatchWorkers(n int) Option {
	return func(r *Repo) {
		r.watchWorkers = n
	}
}

// CacheSize sets the number of objects cached in memory, per kind of object
func CacheSize(n int) Option {
	return func(r *Repo) {
		r.cacheSize = n
	}
}

// Retries bounds the time spent retrying updates which lose races against concurrent updates
func Retries(maxElapsed time.Duration) Option {
	return func(r *Repo) {
		if maxElapsed > 0 {
			r.retryTimeout = maxElapsed
		}
	}
}

// InfoFunc sets the way info is built for commits created on behalf of the user,
// such as virtual merge bases
func InfoFunc(f func(message string) model.Info) Option {
	return func(r *Repo) {
		if f != nil {
			r.infoFunc = f
		}
	}
}

// WithMetrics toggles metrics collection
func WithMetrics(enabled bool) Option {
	return func(r *Repo) {
		r.EnableMetrics(enabled)
	}
}

// LcaOption tunes a search for common ancestors
type LcaOption func(*lcaSettings)

type lcaSettings struct {
	maxDepth int
	n        int
}

// LcaMaxDepth bounds the depth of the search
func LcaMaxDepth(depth int) LcaOption {
	return func(s *lcaSettings) {
		s.maxDepth = depth
	}
}

// LcaMax bounds the number of common ancestors
func LcaMax(n int) LcaOption {
	return func(s *lcaSettings) {
		s.n = n
	}
}

func (r *Repo) lcaSettings(opts []LcaOption) lcaSettings {
	s := lcaSettings{maxDepth: r.maxDepth, n: r.maxLcas}
	for _, apply := range opts {
		apply(&s)
	}
	return s
}
