package core

import (
	"context"
	"sync"

	"github.com/oneconcern/trellis/pkg/branch"
	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/watch"
)

// watchedTable notifies watchers of every change of a branch table.
//
// Mutations and notifications are serialized, so that watchers observe heads
// in the order they were set.
type watchedTable struct {
	mx    sync.Mutex
	table branch.Table
	hub   *watch.Hub[string, cafs.Key]
}

func newWatchedTable(table branch.Table, hub *watch.Hub[string, cafs.Key]) *watchedTable {
	return &watchedTable{table: table, hub: hub}
}

func (w *watchedTable) Find(ctx context.Context, name string) (cafs.Key, bool, error) {
	return w.table.Find(ctx, name)
}

func (w *watchedTable) List(ctx context.Context) ([]string, error) {
	return w.table.List(ctx)
}

func (w *watchedTable) Heads(ctx context.Context) (map[string]cafs.Key, error) {
	names, err := w.table.List(ctx)
	if err != nil {
		return nil, err
	}
	heads := make(map[string]cafs.Key, len(names))
	for _, name := range names {
		head, found, err := w.table.Find(ctx, name)
		if err != nil {
			return nil, err
		}
		if found {
			heads[name] = head
		}
	}
	return heads, nil
}

func (w *watchedTable) Set(ctx context.Context, name string, head cafs.Key) error {
	w.mx.Lock()
	defer w.mx.Unlock()

	if err := w.table.Set(ctx, name, head); err != nil {
		return err
	}
	w.hub.Notify(name, watch.State[cafs.Key]{Value: head, Present: true})
	return nil
}

func (w *watchedTable) TestAndSet(ctx context.Context, name string, test, set *cafs.Key) (bool, error) {
	w.mx.Lock()
	defer w.mx.Unlock()

	ok, err := w.table.TestAndSet(ctx, name, test, set)
	if err != nil || !ok {
		return false, err
	}
	w.hub.Notify(name, stateOf(set))
	return true, nil
}

func (w *watchedTable) Remove(ctx context.Context, name string) error {
	w.mx.Lock()
	defer w.mx.Unlock()

	if err := w.table.Remove(ctx, name); err != nil {
		return err
	}
	w.hub.Notify(name, watch.State[cafs.Key]{})
	return nil
}

// Watch registers a watcher on a branch. A nil init stands for the current head.
func (w *watchedTable) Watch(ctx context.Context, name string, init *cafs.Key, unborn bool, cb watch.Callback[string, cafs.Key]) (watch.ID, error) {
	w.mx.Lock()
	defer w.mx.Unlock()

	head, found, err := w.table.Find(ctx, name)
	if err != nil {
		return "", err
	}
	current := watch.State[cafs.Key]{Value: head, Present: found}
	start := current
	switch {
	case init != nil:
		start = stateOf(init)
	case unborn:
		start = watch.State[cafs.Key]{}
	}
	return w.hub.Watch(name, current, start, cb)
}

// WatchAll registers a watcher on all branches. A nil init stands for the current heads.
func (w *watchedTable) WatchAll(ctx context.Context, init map[string]cafs.Key, cb watch.Callback[string, cafs.Key]) (watch.ID, error) {
	w.mx.Lock()
	defer w.mx.Unlock()

	current, err := w.Heads(ctx)
	if err != nil {
		return "", err
	}
	if init == nil {
		init = current
	}
	return w.hub.WatchAll(current, init, cb)
}

func stateOf(k *cafs.Key) watch.State[cafs.Key] {
	if k == nil {
		return watch.State[cafs.Key]{}
	}
	return watch.State[cafs.Key]{Value: *k, Present: true}
}
