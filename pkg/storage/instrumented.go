// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"time"

	"github.com/oneconcern/trellis/pkg/metrics"
	"go.uber.org/zap"
)

// M describes metrics for storage backends
type M struct {
	Usage   metrics.UsageMetrics `group:"usage" description:"storage API calls"`
	Volumes struct {
		IO metrics.CountMetrics `group:"io" description:"bytes read from and written to storage"`
	} `group:"volumes" description:"storage volumetry"`
}

// Instrument decorates a store with debug logging and usage metrics
func Instrument(l *zap.Logger, store Store) Store {
	if l == nil {
		l = zap.NewNop()
	}
	i := &instrumentedStore{
		store: store,
		l:     l.With(zap.String("store", store.String())),
	}
	i.EnableMetrics(true)
	i.m = i.EnsureMetrics("storage", &M{}).(*M)
	return i
}

type instrumentedStore struct {
	metrics.Enable
	store Store
	l     *zap.Logger
	m     *M
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}

func (i *instrumentedStore) Has(ctx context.Context, key string) (has bool, err error) {
	defer func(t0 time.Time) {
		i.m.Usage.UsedAll(t0, "Has")(err)
	}(time.Now())
	i.l.Debug("storage has", zap.String("key", key))

	return i.store.Has(ctx, key)
}

func (i *instrumentedStore) Get(ctx context.Context, key string) (rdr io.ReadCloser, err error) {
	defer func(t0 time.Time) {
		i.m.Usage.UsedAll(t0, "Get")(err)
	}(time.Now())
	i.l.Debug("storage get", zap.String("key", key))

	rdr, err = i.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &countingReader{ReadCloser: rdr, done: func(n int64) {
		i.m.Volumes.IO.Inc(i.String(), "read")
		i.m.Volumes.IO.Bytes(n, i.String(), "read")
	}}, nil
}

func (i *instrumentedStore) Put(ctx context.Context, key string, rdr io.Reader, exclusive bool) (err error) {
	defer func(t0 time.Time) {
		i.m.Usage.UsedAll(t0, "Put")(err)
	}(time.Now())
	i.l.Debug("storage put", zap.String("key", key), zap.Bool("exclusive", exclusive))

	cr := &countingReader{ReadCloser: io.NopCloser(rdr)}
	if err = i.store.Put(ctx, key, cr, exclusive); err != nil {
		return err
	}
	i.m.Volumes.IO.Inc(i.String(), "write")
	i.m.Volumes.IO.Bytes(cr.n, i.String(), "write")
	return nil
}

func (i *instrumentedStore) Delete(ctx context.Context, key string) (err error) {
	defer func(t0 time.Time) {
		i.m.Usage.UsedAll(t0, "Delete")(err)
	}(time.Now())
	i.l.Debug("storage delete", zap.String("key", key))

	return i.store.Delete(ctx, key)
}

func (i *instrumentedStore) Keys(ctx context.Context) (keys []string, err error) {
	defer func(t0 time.Time) {
		i.m.Usage.UsedAll(t0, "Keys")(err)
	}(time.Now())
	i.l.Debug("storage keys")

	return i.store.Keys(ctx)
}

func (i *instrumentedStore) KeysPrefix(ctx context.Context, prefix string) (keys []string, err error) {
	defer func(t0 time.Time) {
		i.m.Usage.UsedAll(t0, "KeysPrefix")(err)
	}(time.Now())
	i.l.Debug("storage keys with prefix", zap.String("prefix", prefix))

	return i.store.KeysPrefix(ctx, prefix)
}

func (i *instrumentedStore) Clear(ctx context.Context) (err error) {
	defer func(t0 time.Time) {
		i.m.Usage.UsedAll(t0, "Clear")(err)
	}(time.Now())
	i.l.Info("storage clear")

	return i.store.Clear(ctx)
}

type countingReader struct {
	io.ReadCloser
	n    int64
	done func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) Close() error {
	if c.done != nil {
		c.done(c.n)
		c.done = nil
	}
	return c.ReadCloser.Close()
}
