package watch

import (
	"context"
	"fmt"
	"sync"

	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/oneconcern/trellis/pkg/metrics"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// ErrClosed is returned when registering a watcher on a closed hub
var ErrClosed = errors.New("watch hub is closed")

// ID identifies a watcher
type ID string

// Callback receives the changes of the value of some key.
//
// Errors returned by callbacks are logged, and otherwise ignored.
type Callback[K comparable, V any] func(ctx context.Context, key K, diff Diff[V]) error

// State is the value of a key, when present
type State[V any] struct {
	Value   V
	Present bool
}

type event[K comparable, V any] struct {
	key  K
	diff Diff[V]
}

type watcher[K comparable, V any] struct {
	id        ID
	key       K
	all       bool
	cb        Callback[K, V]
	last      map[K]V // last observed values
	queue     []event[K, V]
	scheduled bool
	stopped   bool
}

// Hub dispatches value changes to watchers
type Hub[K comparable, V any] struct {
	options
	metrics.Enable
	m *M

	equal func(a, b V) bool

	mx       sync.Mutex
	cond     *sync.Cond
	watchers map[ID]*watcher[K, V]
	byKey    map[K]map[ID]*watcher[K, V]
	all      map[ID]*watcher[K, V]
	runq     []*watcher[K, V]
	pending  int
	idle     chan struct{}
	closed   bool

	ctx    context.Context
	cancel func()
	wg     sync.WaitGroup
}

// New builds a hub and starts its pool of workers.
//
// Close must be called to release the workers.
func New[K comparable, V any](equal func(a, b V) bool, opts ...Option) *Hub[K, V] {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}

	h := &Hub[K, V]{
		options:  o,
		equal:    equal,
		watchers: make(map[ID]*watcher[K, V]),
		byKey:    make(map[K]map[ID]*watcher[K, V]),
		all:      make(map[ID]*watcher[K, V]),
		idle:     closedChan(),
	}
	h.cond = sync.NewCond(&h.mx)
	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.EnableMetrics(o.metrics)
	if h.MetricsEnabled() {
		h.m = h.EnsureMetrics("watch", &M{}).(*M)
	}

	h.wg.Add(o.workers)
	for i := 0; i < o.workers; i++ {
		go h.worker()
	}
	return h
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Watch registers a callback on the changes of one key.
//
// The watcher is considered to have observed init. When current differs from init,
// a first notification for this difference is queued right away.
func (h *Hub[K, V]) Watch(key K, current, init State[V], cb Callback[K, V]) (ID, error) {
	h.mx.Lock()
	defer h.mx.Unlock()
	if h.closed {
		return "", ErrClosed
	}

	w := h.newWatcher(cb)
	w.key = key
	if init.Present {
		w.last[key] = init.Value
	}
	if h.byKey[key] == nil {
		h.byKey[key] = make(map[ID]*watcher[K, V])
	}
	h.byKey[key][w.id] = w
	h.register(w)

	h.observe(w, key, current)
	return w.id, nil
}

// WatchAll registers a callback on the changes of all keys.
//
// The watcher is considered to have observed init. Keys for which current differs
// from init get a first notification queued right away.
func (h *Hub[K, V]) WatchAll(current, init map[K]V, cb Callback[K, V]) (ID, error) {
	h.mx.Lock()
	defer h.mx.Unlock()
	if h.closed {
		return "", ErrClosed
	}

	w := h.newWatcher(cb)
	w.all = true
	for k, v := range init {
		w.last[k] = v
	}
	h.all[w.id] = w
	h.register(w)

	for k := range init {
		if _, ok := current[k]; !ok {
			h.observe(w, k, State[V]{})
		}
	}
	for k, v := range current {
		h.observe(w, k, State[V]{Value: v, Present: true})
	}
	return w.id, nil
}

func (h *Hub[K, V]) newWatcher(cb Callback[K, V]) *watcher[K, V] {
	return &watcher[K, V]{
		id:   ID(ksuid.New().String()),
		cb:   cb,
		last: make(map[K]V),
	}
}

func (h *Hub[K, V]) register(w *watcher[K, V]) {
	h.watchers[w.id] = w
	if h.MetricsEnabled() {
		h.m.watchers(len(h.watchers))
	}
	h.l.Debug("watcher registered", zap.String("id", string(w.id)), zap.Bool("all", w.all))
}

// Unwatch stops notifications to a watcher.
//
// Queued notifications are dropped. A notification being delivered concurrently
// may still complete after Unwatch returns.
func (h *Hub[K, V]) Unwatch(id ID) {
	h.mx.Lock()
	defer h.mx.Unlock()

	w, ok := h.watchers[id]
	if !ok {
		return
	}
	w.stopped = true
	h.done(len(w.queue))
	w.queue = nil

	delete(h.watchers, id)
	delete(h.all, id)
	if keyed := h.byKey[w.key]; keyed != nil && !w.all {
		delete(keyed, id)
		if len(keyed) == 0 {
			delete(h.byKey, w.key)
		}
	}
	if h.MetricsEnabled() {
		h.m.watchers(len(h.watchers))
	}
	h.l.Debug("watcher unregistered", zap.String("id", string(id)))
}

// Notify that the value of a key has changed.
//
// Callers must serialize calls to Notify with the changes they report,
// so that watchers observe changes in order.
func (h *Hub[K, V]) Notify(key K, state State[V]) {
	h.mx.Lock()
	defer h.mx.Unlock()
	if h.closed {
		return
	}
	for _, w := range h.byKey[key] {
		h.observe(w, key, state)
	}
	for _, w := range h.all {
		h.observe(w, key, state)
	}
}

// observe queues a notification to a watcher, if the value differs from what it last observed
func (h *Hub[K, V]) observe(w *watcher[K, V], key K, state State[V]) {
	old, hadOld := w.last[key]
	diff, changed := Between(old, hadOld, state.Value, state.Present, h.equal)
	if !changed {
		return
	}
	if state.Present {
		w.last[key] = state.Value
	} else {
		delete(w.last, key)
	}

	w.queue = append(w.queue, event[K, V]{key: key, diff: diff})
	if h.pending == 0 {
		h.idle = make(chan struct{})
	}
	h.pending++
	h.schedule(w)
}

func (h *Hub[K, V]) schedule(w *watcher[K, V]) {
	if w.scheduled || w.stopped || len(w.queue) == 0 {
		return
	}
	w.scheduled = true
	h.runq = append(h.runq, w)
	h.cond.Signal()
}

// done accounts for n notifications completed or dropped
func (h *Hub[K, V]) done(n int) {
	if n == 0 {
		return
	}
	h.pending -= n
	if h.pending == 0 {
		close(h.idle)
	}
}

func (h *Hub[K, V]) worker() {
	defer h.wg.Done()

	for {
		h.mx.Lock()
		for len(h.runq) == 0 && !h.closed {
			h.cond.Wait()
		}
		if len(h.runq) == 0 {
			h.mx.Unlock()
			return
		}
		w := h.runq[0]
		h.runq[0] = nil
		h.runq = h.runq[1:]

		if w.stopped || len(w.queue) == 0 {
			w.scheduled = false
			h.mx.Unlock()
			continue
		}
		ev := w.queue[0]
		w.queue[0] = event[K, V]{}
		w.queue = w.queue[1:]
		h.mx.Unlock()

		h.deliver(w, ev)

		h.mx.Lock()
		h.done(1)
		w.scheduled = false
		h.schedule(w)
		h.mx.Unlock()
	}
}

// deliver runs a callback, isolating failures
func (h *Hub[K, V]) deliver(w *watcher[K, V], ev event[K, V]) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("watch callback panicked: %v", r)
			}
		}()
		err = w.cb(h.ctx, ev.key, ev.diff)
	}()

	if err != nil {
		h.l.Warn("watch callback failed",
			zap.String("id", string(w.id)),
			zap.Stringer("diff", ev.diff.Kind),
			zap.Error(err),
		)
		if h.MetricsEnabled() {
			h.m.failed(ev.diff.Kind)
		}
		return
	}
	if h.MetricsEnabled() {
		h.m.delivered(ev.diff.Kind)
	}
}

// Pending is the number of notifications queued or being delivered
func (h *Hub[K, V]) Pending() int {
	h.mx.Lock()
	defer h.mx.Unlock()
	return h.pending
}

// Len is the number of registered watchers
func (h *Hub[K, V]) Len() int {
	h.mx.Lock()
	defer h.mx.Unlock()
	return len(h.watchers)
}

// Wait until all pending notifications have been delivered
func (h *Hub[K, V]) Wait(ctx context.Context) error {
	for {
		h.mx.Lock()
		if h.pending == 0 {
			h.mx.Unlock()
			return nil
		}
		idle := h.idle
		h.mx.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close the hub: pending notifications are delivered, then workers exit.
//
// Later notifications are ignored.
func (h *Hub[K, V]) Close() {
	h.mx.Lock()
	if h.closed {
		h.mx.Unlock()
		return
	}
	h.closed = true
	h.cond.Broadcast()
	h.mx.Unlock()

	h.wg.Wait()
	h.cancel()
}
