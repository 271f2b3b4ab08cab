// Copyright © 2018 One Concern

// Package localfs implements a storage.Store on top of an afero file system.
//
// Objects are first written in a staging area, then renamed into place, so
// readers never observe a partially written object.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oneconcern/trellis/pkg/storage"
	"github.com/oneconcern/trellis/pkg/storage/status"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

const (
	// staging area key prefix
	nestedPutStageName = ".put-stage"
	root               = "."
)

// New creates a new file system backed storage model.
//
// When fs is nil, objects are stored on the local file system, under .trellis/objects.
func New(fs afero.Fs) (storage.Store, error) {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(".trellis", "objects"))
	}
	if err := fs.MkdirAll(nestedPutStageName, 0700); err != nil {
		return nil, fmt.Errorf("ensuring put staging directory for %q: %v", nestedPutStageName, err)
	}
	return &localFS{
		fs: fs,
	}, nil
}

// NewMem creates a new in-memory storage model
func NewMem() storage.Store {
	s, _ := New(afero.NewMemMapFs()) // never fails on a mem map fs
	return s
}

type localFS struct {
	fs afero.Fs
}

func maybeInvalidKey(key string) error {
	if key == "" {
		return status.ErrInvalidResource.WrapMessage("empty key")
	}
	pathComponents := strings.Split(strings.TrimLeft(filepath.ToSlash(key), "/"), "/")
	for _, component := range pathComponents {
		if component == ".." {
			return status.ErrInvalidResource.WrapMessage("key %q escapes the store", key)
		}
	}
	if pathComponents[0] == nestedPutStageName {
		return status.ErrInvalidResource.WrapMessage("key %q conflicts with put staging area name %q", key, nestedPutStageName)
	}
	return nil
}

func (l *localFS) Has(_ context.Context, key string) (bool, error) {
	if err := maybeInvalidKey(key); err != nil {
		return false, err
	}
	fi, err := l.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, status.ErrStorageAPI.Wrap(err)
	}

	return !fi.IsDir(), nil
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotExists.WrapMessage("key %q", key)
	}
	f, err := l.fs.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			// deleted meanwhile
			return nil, status.ErrNotExists.WrapMessage("key %q", key)
		}
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return f, nil
}

// Put writes an object in the staging area then renames it into place.
//
// Staging names are unique, so concurrent writers of the same key do not interfere:
// the last rename wins.
func (l *localFS) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	if exclusive {
		has, err := l.Has(ctx, key)
		if err != nil {
			return err
		}
		if has {
			return status.ErrExists.WrapMessage("key %q", key)
		}
	}

	staged := filepath.Join(nestedPutStageName, ksuid.New().String())
	target, err := l.fs.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create record for %q: %v", key, err)
	}

	if _, err = io.Copy(target, source); err != nil {
		_ = target.Close()
		_ = l.fs.Remove(staged)
		return fmt.Errorf("write record for %q: %v", key, err)
	}
	if err = target.Close(); err != nil {
		_ = l.fs.Remove(staged)
		return err
	}

	// Rename() doesn't create directories automatically
	if dir := filepath.Dir(key); dir != "" && dir != root {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			_ = l.fs.Remove(staged)
			return fmt.Errorf("ensuring directories for %q: %v", key, err)
		}
	}
	if err := l.fs.Rename(staged, key); err != nil {
		_ = l.fs.Remove(staged)
		return status.ErrStorageAPI.Wrap(err)
	}
	return nil
}

func (l *localFS) Delete(_ context.Context, key string) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	if err := l.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %v", key, err)
	}
	return nil
}

func (l *localFS) Keys(ctx context.Context) ([]string, error) {
	return l.walk(ctx, root, "")
}

// KeysPrefix lists all keys starting with a prefix, in lexicographic order
func (l *localFS) KeysPrefix(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimLeft(filepath.ToSlash(prefix), "/")
	start := root
	if dir := filepath.Dir(prefix); dir != "" && dir != root {
		start = dir
	}
	return l.walk(ctx, start, prefix)
}

func (l *localFS) walk(ctx context.Context, start, prefix string) ([]string, error) {
	var res []string
	err := afero.Walk(l.fs, start, func(pth string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		key := strings.TrimLeft(filepath.ToSlash(pth), "/")
		key = strings.TrimPrefix(key, "./")
		if info.IsDir() {
			if key == nestedPutStageName {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(key, prefix) {
			res = append(res, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(res)
	return res, nil
}

func (l *localFS) Clear(_ context.Context) error {
	entries, err := afero.ReadDir(l.fs, root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Name() == nestedPutStageName {
			continue
		}
		if err := l.fs.RemoveAll(entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return localfs + "@" + pp
	case *afero.MemMapFs:
		return localfs + "@memory"
	default:
		return localfs
	}
}
