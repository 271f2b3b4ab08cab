package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headRecorder struct {
	mx    sync.Mutex
	diffs []watch.Diff[cafs.Key]
}

func (h *headRecorder) cb(_ context.Context, d watch.Diff[cafs.Key]) error {
	h.mx.Lock()
	defer h.mx.Unlock()
	h.diffs = append(h.diffs, d)
	return nil
}

func (h *headRecorder) get() []watch.Diff[cafs.Key] {
	h.mx.Lock()
	defer h.mx.Unlock()
	return append([]watch.Diff[cafs.Key](nil), h.diffs...)
}

func TestWatchBranch(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	k := chain(t, r, 3)

	h, err := r.Branch("main")
	require.NoError(t, err)

	var rec headRecorder
	id, err := h.Watch(ctx, rec.cb)
	require.NoError(t, err)

	require.NoError(t, h.SetHead(ctx, k[0]))
	require.NoError(t, h.SetHead(ctx, k[1]))
	require.NoError(t, h.SetHead(ctx, k[1]))
	ok, err := h.TestAndSetHead(ctx, &k[1], &k[2])
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = h.TestAndSetHead(ctx, &k[1], &k[0])
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, r.RemoveBranch(ctx, "main"))
	waitWatchers(t, r)

	assert.Equal(t, []watch.Diff[cafs.Key]{
		watch.Added(k[0]),
		watch.Updated(k[0], k[1]),
		watch.Updated(k[1], k[2]),
		watch.Removed(k[2]),
	}, rec.get())

	r.Unwatch(id)
	require.NoError(t, h.SetHead(ctx, k[0]))
	waitWatchers(t, r)
	assert.Len(t, rec.get(), 4)
}

func TestWatchInit(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	k := chain(t, r, 2)
	require.NoError(t, r.SetBranch(ctx, "main", k[1]))
	h, err := r.Branch("main")
	require.NoError(t, err)

	var current, from, unborn headRecorder
	_, err = h.Watch(ctx, current.cb)
	require.NoError(t, err)
	_, err = h.Watch(ctx, from.cb, WatchFrom(k[0]))
	require.NoError(t, err)
	_, err = h.Watch(ctx, unborn.cb, WatchFromUnborn())
	require.NoError(t, err)
	waitWatchers(t, r)

	assert.Empty(t, current.get())
	assert.Equal(t, []watch.Diff[cafs.Key]{watch.Updated(k[0], k[1])}, from.get())
	assert.Equal(t, []watch.Diff[cafs.Key]{watch.Added(k[1])}, unborn.get())
}

func TestWatchKey(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	h, err := r.Branch("main")
	require.NoError(t, err)

	var (
		mx    sync.Mutex
		diffs []watch.Diff[Value]
	)
	_, err = h.WatchKey(ctx, path("/a/b"), func(_ context.Context, d watch.Diff[Value]) error {
		mx.Lock()
		defer mx.Unlock()
		diffs = append(diffs, d)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, h.Set(ctx, path("/a/b"), []byte("1"), testInfo("add")))
	require.NoError(t, h.Set(ctx, path("/other"), []byte("x"), testInfo("unrelated")))
	require.NoError(t, h.Set(ctx, path("/a/b"), []byte("2"), testInfo("update")))
	require.NoError(t, h.Remove(ctx, path("/a"), testInfo("remove")))
	waitWatchers(t, r)

	mx.Lock()
	defer mx.Unlock()
	require.Len(t, diffs, 3)
	assert.Equal(t, watch.KindAdded, diffs[0].Kind)
	assert.Equal(t, "1", string(diffs[0].New.Contents))
	assert.Equal(t, watch.KindUpdated, diffs[1].Kind)
	assert.Equal(t, "1", string(diffs[1].Old.Contents))
	assert.Equal(t, "2", string(diffs[1].New.Contents))
	assert.Equal(t, watch.KindRemoved, diffs[2].Kind)
	assert.Equal(t, "2", string(diffs[2].Old.Contents))
}

func TestWatchBranches(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	k := chain(t, r, 2)
	require.NoError(t, r.SetBranch(ctx, "existing", k[0]))

	var (
		mx    sync.Mutex
		names []string
		kinds []watch.DiffKind
	)
	_, err := r.WatchBranches(ctx, nil, func(_ context.Context, name string, d watch.Diff[cafs.Key]) error {
		mx.Lock()
		defer mx.Unlock()
		names = append(names, name)
		kinds = append(kinds, d.Kind)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, r.SetBranch(ctx, "new", k[0]))
	require.NoError(t, r.SetBranch(ctx, "existing", k[1]))
	require.NoError(t, r.RemoveBranch(ctx, "new"))
	waitWatchers(t, r)

	mx.Lock()
	defer mx.Unlock()
	assert.Equal(t, []string{"new", "existing", "new"}, names)
	assert.Equal(t, []watch.DiffKind{watch.KindAdded, watch.KindUpdated, watch.KindRemoved}, kinds)
}

func TestWatchCompleteness(t *testing.T) {
	r := newTestRepo(t, WatchWorkers(8))
	ctx := context.Background()
	k := chain(t, r, 2)
	require.NoError(t, r.SetBranch(ctx, "main", k[0]))
	h, err := r.Branch("main")
	require.NoError(t, err)

	const watchers = 100
	var (
		counts [watchers]int32
		ids    [watchers]watch.ID
	)
	for i := 0; i < watchers; i++ {
		i := i
		ids[i], err = h.Watch(ctx, func(_ context.Context, d watch.Diff[cafs.Key]) error {
			atomic.AddInt32(&counts[i], 1)
			if i%10 == 0 {
				return errors.New("failing watcher")
			}
			if i%10 == 1 {
				panic(fmt.Sprintf("panicking watcher %d", i))
			}
			return nil
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, h.SetHead(ctx, k[1]))
	}()
	for i := 1; i < watchers; i += 2 {
		wg.Add(1)
		go func(id watch.ID) {
			defer wg.Done()
			r.Unwatch(id)
		}(ids[i])
	}
	wg.Wait()
	waitWatchers(t, r)

	for i := 0; i < watchers; i++ {
		n := atomic.LoadInt32(&counts[i])
		if i%2 == 0 {
			assert.Equalf(t, int32(1), n, "watcher %d", i)
			continue
		}
		assert.LessOrEqualf(t, n, int32(1), "watcher %d", i)
	}
}
