package branch

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v3"
	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/errors"
	"go.uber.org/zap"
)

const badgerPrefix = "branch:"

var _ Table = &Badger{}

// Badger is a branch table persisted in a badger database.
//
// Updates run in serializable transactions: a TestAndSet losing a race
// against a concurrent update is retried and evaluates its test again.
type Badger struct {
	db     *badger.DB
	owned  bool
	l      *zap.Logger
	closer sync.Once
}

// BadgerOption configures a badger branch table
type BadgerOption func(*Badger)

// BadgerLogger sets the logger of the table
func BadgerLogger(l *zap.Logger) BadgerOption {
	return func(b *Badger) {
		if l != nil {
			b.l = l
		}
	}
}

// BadgerOwnsDB makes Close also close the database
func BadgerOwnsDB(owned bool) BadgerOption {
	return func(b *Badger) {
		b.owned = owned
	}
}

// NewBadger builds a branch table in some badger database
func NewBadger(db *badger.DB, opts ...BadgerOption) *Badger {
	b := &Badger{
		db: db,
		l:  zap.NewNop(),
	}
	for _, apply := range opts {
		apply(b)
	}
	return b
}

func (b *Badger) key(name string) []byte {
	return []byte(badgerPrefix + name)
}

func (b *Badger) get(txn *badger.Txn, name string) (*cafs.Key, error) {
	item, err := txn.Get(b.key(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	head, err := cafs.NewKey(value)
	if err != nil {
		return nil, err
	}
	return &head, nil
}

func (b *Badger) Find(_ context.Context, name string) (cafs.Key, bool, error) {
	if b.db.IsClosed() {
		return cafs.Key{}, false, ErrClosed
	}
	var head *cafs.Key
	err := b.db.View(func(txn *badger.Txn) error {
		var e error
		head, e = b.get(txn, name)
		return e
	})
	if err != nil || head == nil {
		return cafs.Key{}, false, err
	}
	return *head, true, nil
}

func (b *Badger) Set(ctx context.Context, name string, head cafs.Key) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return b.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(b.key(name), head[:])
	})
}

func (b *Badger) TestAndSet(ctx context.Context, name string, test, set *cafs.Key) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	var swapped bool
	err := b.update(ctx, func(txn *badger.Txn) error {
		swapped = false
		current, err := b.get(txn, name)
		if err != nil {
			return err
		}
		if !sameHead(current, test) {
			return nil
		}
		if set == nil {
			err = txn.Delete(b.key(name))
		} else {
			err = txn.Set(b.key(name), set[:])
		}
		if err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (b *Badger) Remove(ctx context.Context, name string) error {
	return b.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(b.key(name))
	})
}

func (b *Badger) List(_ context.Context) ([]string, error) {
	if b.db.IsClosed() {
		return nil, ErrClosed
	}
	var names []string
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(badgerPrefix),
			PrefetchValues: false,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().Key()[len(badgerPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (b *Badger) Close() error {
	var err error
	b.closer.Do(func() {
		if b.owned {
			err = b.db.Close()
		}
	})
	return err
}

// update retries a transaction on conflicts
func (b *Badger) update(ctx context.Context, fn func(*badger.Txn) error) error {
	if b.db.IsClosed() {
		return ErrClosed
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Millisecond
	bo.MaxInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 0 // retry until the context is done

	return backoff.RetryNotify(func() error {
		err := b.db.Update(fn)
		if err != nil && !errors.Is(err, badger.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	},
		backoff.WithContext(bo, ctx),
		func(err error, d time.Duration) {
			b.l.Debug("branch update conflict: retrying", zap.Error(err), zap.Duration("after", d))
		},
	)
}
