package cafs

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/oneconcern/trellis/pkg/metrics"
	"github.com/oneconcern/trellis/pkg/storage"
	"github.com/oneconcern/trellis/pkg/storage/localfs"
	"github.com/oneconcern/trellis/pkg/storage/status"
	"go.uber.org/zap"
)

const (
	// DeduplicationBlake is the deduplication scheme using the blake hash
	// https://en.wikipedia.org/wiki/BLAKE_(hash_function).
	//
	// The implementation of the Blake hash we use (https://github.com/minio/blake2b-simd)
	// is 3 to 5 times faster than usual hashes such as MD5 or SHA's.
	DeduplicationBlake = "blake2b-256"

	// DefaultCacheSize sets the default number of objects retained in the LRU cache
	DefaultCacheSize = 4096
)

var (
	// ErrCorrupted indicates that some stored object does not match its key
	ErrCorrupted = errors.New("corrupted object: content does not match its key")

	// ErrInvalidKey indicates that the representation of a key cannot be parsed
	ErrInvalidKey = errors.New("invalid key")
)

// PutRes holds the result from a Put operation
type PutRes struct {
	Written int64 // bytes written
	Key     Key   // the key of the written object
	Found   bool  // the object was already existing
}

// Fs implementations provide content-addressable storage operations.
//
// Objects returned by GetBytes are shared with the cache and must not be mutated.
type Fs interface {
	Get(context.Context, Key) (io.ReadCloser, error)
	GetBytes(context.Context, Key) ([]byte, error)
	Put(context.Context, io.Reader) (PutRes, error)
	PutBytes(context.Context, []byte) (PutRes, error)
	Has(context.Context, Key) (bool, error)
	Delete(context.Context, Key) error
	Clear(context.Context) error
	Keys(context.Context) ([]Key, error)
	GetAddressingScheme() string
}

var _ Fs = &defaultFs{}

func defaultsForFs() *defaultFs {
	return &defaultFs{
		lruSize:        DefaultCacheSize,
		l:              zap.NewNop(),
		withVerifyHash: true,
	}
}

// New creates a new instance of a content-addressable store.
//
// The default backend is an in-memory store.
func New(opts ...Option) (Fs, error) {
	f := defaultsForFs()
	for _, apply := range opts {
		apply(f)
	}
	if f.backend == nil {
		f.backend = localfs.NewMem()
	}

	var err error
	f.lru, err = lru.New[Key, []byte](f.lruSize)
	if err != nil {
		return nil, err
	}

	if f.MetricsEnabled() {
		f.m = f.EnsureMetrics("cafs", &M{}).(*M)
	}
	f.l = f.l.With(zap.String("cafs", f.backend.String()), zap.String("namespace", f.prefix))

	return f, nil
}

type defaultFs struct {
	backend storage.Store
	l       *zap.Logger

	// prefix determines a namespace for keys
	prefix string

	// recently used objects
	lru     *lru.Cache[Key, []byte]
	lruSize int

	withVerifyHash bool

	metrics.Enable
	m *M
}

func (d *defaultFs) GetAddressingScheme() string {
	return DeduplicationBlake
}

func (d *defaultFs) pather(k Key) string {
	return k.StringWithPrefix(d.prefix)
}

func (d *defaultFs) Put(ctx context.Context, src io.Reader) (PutRes, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return PutRes{}, err
	}
	return d.PutBytes(ctx, data)
}

// PutBytes stores an object, unless it already exists.
//
// Concurrent puts of the same content are safe: the loser of the race reports Found.
func (d *defaultFs) PutBytes(ctx context.Context, data []byte) (res PutRes, err error) {
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Put")(err)
		}
	}(time.Now())

	res.Key = Sum(data)
	res.Written = int64(len(data))

	if d.lru.Contains(res.Key) {
		res.Found = true
		d.dedup(res.Key)
		return res, nil
	}

	has, err := d.backend.Has(ctx, d.pather(res.Key))
	if err != nil {
		return PutRes{}, err
	}
	if has {
		res.Found = true
		d.dedup(res.Key)
		return res, nil
	}

	// the object is copied so the caller may reuse its buffer
	stored := make([]byte, len(data))
	copy(stored, data)

	err = d.backend.Put(ctx, d.pather(res.Key), bytes.NewReader(stored), storage.NoOverWrite)
	switch {
	case errors.Is(err, status.ErrExists):
		res.Found = true
		d.dedup(res.Key)
		err = nil
	case err != nil:
		return PutRes{}, err
	default:
		d.l.Debug("new object", zap.Stringer("key", res.Key), zap.Int64("size", res.Written))
		if d.MetricsEnabled() {
			d.m.Volume.Blobs.IncBlob("put")
			d.m.Volume.Blobs.Size(res.Written, "put")
		}
	}
	d.lru.Add(res.Key, stored)

	return res, nil
}

func (d *defaultFs) dedup(k Key) {
	d.l.Debug("deduplicated object", zap.Stringer("key", k))
	if d.MetricsEnabled() {
		d.m.Volume.Blobs.IncDuplicate("put")
	}
}

func (d *defaultFs) Get(ctx context.Context, hash Key) (io.ReadCloser, error) {
	data, err := d.GetBytes(ctx, hash)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// GetBytes retrieves an object, or status.ErrNotExists.
func (d *defaultFs) GetBytes(ctx context.Context, hash Key) (data []byte, err error) {
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Get")(err)
		}
	}(time.Now())

	if cached, ok := d.lru.Get(hash); ok {
		if d.MetricsEnabled() {
			d.m.Volume.Cache.Hit("get")
		}
		return cached, nil
	}
	if d.MetricsEnabled() {
		d.m.Volume.Cache.Miss("get")
	}

	data, err = storage.ReadAll(ctx, d.backend, d.pather(hash))
	if err != nil {
		return nil, err
	}
	if d.withVerifyHash && !Verify(hash, data) {
		d.l.Error("object does not match its key", zap.Stringer("key", hash))
		return nil, ErrCorrupted.WrapMessage("key %v", hash)
	}
	d.lru.Add(hash, data)

	return data, nil
}

func (d *defaultFs) Has(ctx context.Context, hash Key) (bool, error) {
	if d.lru.Contains(hash) {
		return true, nil
	}
	return d.backend.Has(ctx, d.pather(hash))
}

func (d *defaultFs) Delete(ctx context.Context, hash Key) error {
	d.lru.Remove(hash)
	return d.backend.Delete(ctx, d.pather(hash))
}

// Clear removes all the objects in this namespace
func (d *defaultFs) Clear(ctx context.Context) error {
	d.lru.Purge()
	if d.prefix == "" {
		return d.backend.Clear(ctx)
	}
	keys, err := d.backend.KeysPrefix(ctx, d.prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := d.backend.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Keys lists all the objects in this namespace.
//
// Backend keys which are not valid keys are skipped.
func (d *defaultFs) Keys(ctx context.Context) ([]Key, error) {
	keys, err := d.backend.KeysPrefix(ctx, d.prefix)
	if err != nil {
		return nil, err
	}
	res := make([]Key, 0, len(keys))
	for _, k := range keys {
		key, err := KeyFromString(strings.TrimPrefix(k, d.prefix))
		if err != nil {
			continue
		}
		res = append(res, key)
	}
	return res, nil
}
