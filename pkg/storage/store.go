// Copyright © 2018 One Concern

package storage

import (
	"bytes"
	"context"
	"io"
)

const (
	// OverWrite a key if it exists already
	OverWrite = false

	// NoOverWrite fails with status.ErrExists when the key exists already
	NoOverWrite = true
)

// Store implementations know how to write entries to a K/V model.
//
// Typically this is something file system-like or a key-value store.
// Implementations of this interface are assumed to be fairly simple,
// and must be safe for concurrent use.
//
// Get returns status.ErrNotExists when the key is not present.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, bool) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	KeysPrefix(context.Context, string) ([]string, error)
	Clear(context.Context) error
}

// ReadAll fetches a whole object from a store
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	rdr, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	return io.ReadAll(rdr)
}

// ReadTee copies an object from a source store to a destination store, and returns its content
func ReadTee(ctx context.Context, sStore Store, source string, dStore Store, destination string) ([]byte, error) {
	object, err := ReadAll(ctx, sStore, source)
	if err != nil {
		return nil, err
	}
	if err = dStore.Put(ctx, destination, bytes.NewReader(object), OverWrite); err != nil {
		return nil, err
	}
	return object, nil
}
