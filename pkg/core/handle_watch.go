package core

import (
	"context"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/oneconcern/trellis/pkg/model"
	"github.com/oneconcern/trellis/pkg/watch"
)

// Value found at some path of a tree. Contents are nil for subtrees.
type Value struct {
	Entry    model.Entry
	Contents []byte
}

func sameValue(a, b Value) bool {
	return a.Entry == b.Entry
}

// WatchOption tells from which head a watcher starts
type WatchOption func(*watchSettings)

type watchSettings struct {
	init   *cafs.Key
	unborn bool
}

// WatchFrom considers that the watcher has observed some head: when the current
// head differs, a first notification is delivered right away
func WatchFrom(head cafs.Key) WatchOption {
	return func(s *watchSettings) {
		s.init = &head
	}
}

// WatchFromUnborn considers that the watcher has observed no head: when the branch
// exists, a first notification is delivered right away
func WatchFromUnborn() WatchOption {
	return func(s *watchSettings) {
		s.init = nil
		s.unborn = true
	}
}

// Watch the head of the branch. By default, the watcher starts from the current head.
//
// Callbacks are called asynchronously, once per change of head, in order. Errors
// returned by callbacks are logged.
func (h *Handle) Watch(ctx context.Context, cb func(context.Context, watch.Diff[cafs.Key]) error, opts ...WatchOption) (watch.ID, error) {
	if h.detached != nil {
		return "", status.ErrInvalidArgument.WrapMessage("cannot watch a detached head")
	}
	var s watchSettings
	for _, apply := range opts {
		apply(&s)
	}
	return h.repo.branches.Watch(ctx, h.name, s.init, s.unborn, func(ctx context.Context, _ string, diff watch.Diff[cafs.Key]) error {
		return cb(ctx, diff)
	})
}

// WatchKey watches the value at some path of the branch.
//
// The callback is called only when the value at this path changes.
func (h *Handle) WatchKey(ctx context.Context, path model.Path, cb func(context.Context, watch.Diff[Value]) error, opts ...WatchOption) (watch.ID, error) {
	return h.Watch(ctx, func(ctx context.Context, diff watch.Diff[cafs.Key]) error {
		oldHead, hadOld, newHead, hasNew := diff.Values()

		var (
			old, v         Value
			hasOld, hasNow bool
			err            error
		)
		if hadOld {
			if old, hasOld, err = h.repo.valueAt(ctx, oldHead, path); err != nil {
				return err
			}
		}
		if hasNew {
			if v, hasNow, err = h.repo.valueAt(ctx, newHead, path); err != nil {
				return err
			}
		}

		d, changed := watch.Between(old, hasOld, v, hasNow, sameValue)
		if !changed {
			return nil
		}
		return cb(ctx, d)
	}, opts...)
}

// valueAt yields the value at some path of the tree of a commit
func (r *Repo) valueAt(ctx context.Context, commit cafs.Key, path model.Path) (Value, bool, error) {
	c, err := r.commit(ctx, commit)
	if err != nil {
		return Value{}, false, err
	}
	entry, found, err := r.Get(ctx, c.Node, path)
	if err != nil || !found {
		return Value{}, false, err
	}
	v := Value{Entry: entry}
	if entry.IsContents() {
		if v.Contents, err = r.contentsOf(ctx, entry.Hash); err != nil {
			return Value{}, false, err
		}
	}
	return v, true, nil
}

// WatchBranches watches the heads of all branches.
//
// A nil init means that the watcher starts from the current heads. Otherwise, branches
// whose current head differs from init are notified right away.
func (r *Repo) WatchBranches(ctx context.Context, init map[string]cafs.Key, cb func(ctx context.Context, name string, diff watch.Diff[cafs.Key]) error) (watch.ID, error) {
	return r.branches.WatchAll(ctx, init, cb)
}
