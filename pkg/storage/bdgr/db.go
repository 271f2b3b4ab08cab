// Package bdgr implements a storage.Store on top of the badger key-value database.
package bdgr

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"
	badgeroptions "github.com/dgraph-io/badger/v3/options"
	"go.uber.org/zap"
)

// Open a badger database, either in-memory or on disk
func Open(opts ...Option) (*badger.DB, error) {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return open(o)
}

func open(o options) (*badger.DB, error) {
	var bopts badger.Options
	if o.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if o.dir == "" {
			return nil, fmt.Errorf("open KV: a directory is required for an on-disk database")
		}
		if err := os.MkdirAll(o.dir, 0700); err != nil {
			return nil, fmt.Errorf("open KV: mkdir: %w", err)
		}
		bopts = badger.DefaultOptions(o.dir)
	}

	db, err := badger.Open(
		bopts.
			WithLogger(zapAdapter{o.l.Sugar()}).
			WithLoggingLevel(badger.WARNING).
			WithCompression(badgeroptions.None). // hashed keys and compressed payloads don't compress well
			WithNumCompactors(o.compactors),
	)
	if err != nil {
		return nil, fmt.Errorf("open KV: %w", err)
	}
	return db, nil
}

// zapAdapter routes badger logs to zap
type zapAdapter struct {
	*zap.SugaredLogger
}

func (z zapAdapter) Warningf(format string, args ...interface{}) {
	z.Warnf(format, args...)
}
