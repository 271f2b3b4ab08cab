package bdgr

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v3"
	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/oneconcern/trellis/pkg/storage"
	"github.com/oneconcern/trellis/pkg/storage/status"
	"go.uber.org/zap"
)

var _ storage.Store = &Store{}

// Store objects in a badger database
type Store struct {
	options
	db     *badger.DB
	owned  bool
	closer sync.Once
}

// New opens a badger database and builds a store on it.
//
// The store owns the database: Close releases it.
func New(opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	db, err := open(o)
	if err != nil {
		return nil, err
	}
	return &Store{options: o, db: db, owned: true}, nil
}

// NewWithDB builds a store on an already opened badger database. Close does not close the database.
func NewWithDB(db *badger.DB, opts ...Option) *Store {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return &Store{options: o, db: db}
}

// DB exposes the underlying badger database
func (b *Store) DB() *badger.DB {
	return b.db
}

// Close the store
func (b *Store) Close() error {
	var err error
	b.closer.Do(func() {
		if b.owned {
			err = b.db.Close()
		}
	})
	return err
}

func (b *Store) String() string {
	if b.inMemory {
		return "badger@memory"
	}
	return "badger@" + b.dir
}

func (b *Store) key(key string) []byte {
	return []byte(b.prefix + key)
}

func (b *Store) checkKey(key string) error {
	if key == "" {
		return status.ErrInvalidResource.WrapMessage("empty key")
	}
	if b.db.IsClosed() {
		return status.ErrClosed
	}
	return nil
}

func (b *Store) Has(_ context.Context, key string) (bool, error) {
	if err := b.checkKey(key); err != nil {
		return false, err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		_, e := txn.Get(b.key(key))
		return e
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, status.ErrStorageAPI.Wrap(err)
	}
	return true, nil
}

func (b *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if err := b.checkKey(key); err != nil {
		return nil, err
	}
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, e := txn.Get(b.key(key))
		if e != nil {
			return e
		}
		value, e = item.ValueCopy(nil)
		return e
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, status.ErrNotExists.WrapMessage("key %q", key)
		}
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

func (b *Store) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	if err := b.checkKey(key); err != nil {
		return err
	}
	value, err := io.ReadAll(source)
	if err != nil {
		return err
	}
	k := b.key(key)

	return b.retry(ctx, func(txn *badger.Txn) error {
		if exclusive {
			_, e := txn.Get(k)
			if e == nil {
				return status.ErrExists.WrapMessage("key %q", key)
			}
			if !errors.Is(e, badger.ErrKeyNotFound) {
				return e
			}
		}
		return txn.Set(k, value)
	})
}

func (b *Store) Delete(ctx context.Context, key string) error {
	if err := b.checkKey(key); err != nil {
		return err
	}
	return b.retry(ctx, func(txn *badger.Txn) error {
		return txn.Delete(b.key(key))
	})
}

func (b *Store) Keys(ctx context.Context) ([]string, error) {
	return b.KeysPrefix(ctx, "")
}

// KeysPrefix lists keys with some prefix, in lexicographic order
func (b *Store) KeysPrefix(ctx context.Context, prefix string) ([]string, error) {
	if b.db.IsClosed() {
		return nil, status.ErrClosed
	}
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         b.key(prefix),
			PrefetchValues: false,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().Key()[len(b.prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Clear removes all the keys held by this store
func (b *Store) Clear(ctx context.Context) error {
	if b.prefix == "" {
		return b.db.DropAll()
	}
	return b.db.DropPrefix([]byte(b.prefix))
}

// retry an update transaction on conflicts
func (b *Store) retry(ctx context.Context, fn func(*badger.Txn) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.retryPeriod
	bo.MaxElapsedTime = b.maxRetry

	return backoff.RetryNotify(func() error {
		err := b.db.Update(fn)
		if err != nil && !errors.Is(err, badger.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	},
		backoff.WithContext(bo, ctx),
		func(err error, d time.Duration) {
			b.l.Debug("badger transaction conflict: retrying", zap.Error(err), zap.Duration("after", d))
		},
	)
}
