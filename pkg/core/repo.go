// Copyright © 2018 One Concern

package core

import (
	"context"
	"time"

	"github.com/oneconcern/trellis/pkg/branch"
	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/merge"
	"github.com/oneconcern/trellis/pkg/metrics"
	"github.com/oneconcern/trellis/pkg/model"
	"github.com/oneconcern/trellis/pkg/storage"
	"github.com/oneconcern/trellis/pkg/storage/localfs"
	"github.com/oneconcern/trellis/pkg/watch"
	"go.uber.org/zap"
)

// Repo is a versioned store of trees: it holds objects (contents, trees and commits)
// and a table of branches.
//
// A Repo is safe for concurrent use. Several handles on branches may be used concurrently.
type Repo struct {
	metrics.Enable
	m *M

	store storage.Store
	table branch.Table
	l     *zap.Logger

	contents cafs.Fs
	trees    cafs.Fs
	commits  cafs.Fs

	branches *watchedTable
	mergers  *merge.Registry[[]byte]

	maxDepth     int
	maxLcas      int
	watchWorkers int
	cacheSize    int
	retryTimeout time.Duration
	infoFunc     func(string) model.Info

	emptyTree cafs.Key
}

func defaultRepo() *Repo {
	return &Repo{
		l:            zap.NewNop(),
		mergers:      merge.NewRegistry(merge.Bytes()),
		maxDepth:     DefaultMaxDepth,
		maxLcas:      DefaultMaxLcas,
		watchWorkers: watch.DefaultWorkers,
		cacheSize:    cafs.DefaultCacheSize,
		retryTimeout: DefaultRetryTimeout,
		infoFunc:     defaultInfo,
	}
}

func defaultInfo(message string) model.Info {
	return model.NewInfo("trellis", message)
}

// New repository
func New(ctx context.Context, opts ...Option) (*Repo, error) {
	r := defaultRepo()
	for _, apply := range opts {
		apply(r)
	}
	if r.store == nil {
		r.store = localfs.NewMem()
	}
	if r.table == nil {
		r.table = branch.NewMemory()
	}
	if r.MetricsEnabled() {
		r.m = r.EnsureMetrics("core", &M{}).(*M)
	}

	var err error
	newFs := func(namespace string) cafs.Fs {
		if err != nil {
			return nil
		}
		var fs cafs.Fs
		fs, err = cafs.New(
			cafs.Backend(r.store),
			cafs.Prefix(namespace),
			cafs.CacheSize(r.cacheSize),
			cafs.Logger(r.l),
			cafs.WithMetrics(r.MetricsEnabled()),
		)
		return fs
	}
	r.contents = newFs(namespaceContents)
	r.trees = newFs(namespaceTrees)
	r.commits = newFs(namespaceCommits)
	if err != nil {
		return nil, err
	}

	r.emptyTree, err = r.AddTree(ctx, model.EmptyTree())
	if err != nil {
		return nil, err
	}

	r.branches = newWatchedTable(r.table, watch.New[string, cafs.Key](
		func(a, b cafs.Key) bool { return a == b },
		watch.Logger(r.l),
		watch.Workers(r.watchWorkers),
		watch.WithMetrics(r.MetricsEnabled()),
	))

	r.l.Debug("repository ready",
		zap.String("store", r.store.String()),
		zap.Int("max_depth", r.maxDepth),
		zap.Int("max_lcas", r.maxLcas),
	)
	return r, nil
}

// Close the repository: pending watch notifications are delivered, then the branch table is closed.
func (r *Repo) Close() error {
	r.branches.hub.Close()
	return r.table.Close()
}

// EmptyTree is the key of the tree without entries
func (r *Repo) EmptyTree() cafs.Key {
	return r.emptyTree
}

// Logger used by this repository
func (r *Repo) Logger() *zap.Logger {
	return r.l
}

// Branch yields a handle on a named branch. The branch does not need to exist.
func (r *Repo) Branch(name string) (*Handle, error) {
	if err := branch.ValidateName(name); err != nil {
		return nil, err
	}
	return &Handle{repo: r, name: name}, nil
}

// Of yields a detached handle on a commit: updates move the handle, not any branch.
func (r *Repo) Of(commit cafs.Key) *Handle {
	h := &Handle{repo: r}
	h.detached = &detachedHead{head: commit, born: true}
	return h
}

// Empty yields a detached handle without any commit
func (r *Repo) Empty() *Handle {
	return &Handle{repo: r, detached: &detachedHead{}}
}

// Branches lists the names of all branches
func (r *Repo) Branches(ctx context.Context) ([]string, error) {
	return r.branches.List(ctx)
}

// Heads lists the heads of all branches
func (r *Repo) Heads(ctx context.Context) (map[string]cafs.Key, error) {
	return r.branches.Heads(ctx)
}

// FindBranch returns the head of a branch
func (r *Repo) FindBranch(ctx context.Context, name string) (cafs.Key, bool, error) {
	return r.branches.Find(ctx, name)
}

// SetBranch sets the head of a branch unconditionally
func (r *Repo) SetBranch(ctx context.Context, name string, head cafs.Key) error {
	if err := r.requireCommit(ctx, head); err != nil {
		return err
	}
	return r.branches.Set(ctx, name, head)
}

// RemoveBranch deletes a branch. Its commits are not removed.
func (r *Repo) RemoveBranch(ctx context.Context, name string) error {
	return r.branches.Remove(ctx, name)
}

// WaitWatchers waits until all pending watch notifications have been delivered
func (r *Repo) WaitWatchers(ctx context.Context) error {
	return r.branches.hub.Wait(ctx)
}

// PendingNotifications is the number of watch notifications queued or being delivered
func (r *Repo) PendingNotifications() int {
	return r.branches.hub.Pending()
}

// Unwatch stops a watcher
func (r *Repo) Unwatch(id watch.ID) {
	r.branches.hub.Unwatch(id)
}

func (r *Repo) usage(method string) func(error) {
	start := time.Now()
	return func(err error) {
		if r.MetricsEnabled() {
			r.m.Usage.UsedAll(start, method)(err)
		}
	}
}
