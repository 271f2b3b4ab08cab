// Copyright © 2018 One Concern

package localfs

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/oneconcern/trellis/pkg/storage"
	"github.com/oneconcern/trellis/pkg/storage/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHas(t *testing.T) {
	bs := setupStore(t)

	has, err := bs.Has(context.Background(), "sixteentons")
	require.NoError(t, err)
	require.True(t, has)

	has, err = bs.Has(context.Background(), "seventeentons")
	require.NoError(t, err)
	require.True(t, has)

	has, err = bs.Has(context.Background(), "fifteentons")
	require.NoError(t, err)
	require.False(t, has)
}

func TestGet(t *testing.T) {
	bs := setupStore(t)

	b, err := storage.ReadAll(context.Background(), bs, "sixteentons")
	require.NoError(t, err)
	assert.Equal(t, "this is the text", string(b))

	b, err = storage.ReadAll(context.Background(), bs, "seventeentons")
	require.NoError(t, err)
	assert.Equal(t, "this is the text for another thing", string(b))

	_, err = bs.Get(context.Background(), "fifteentons")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotExists))
}

func TestKeys(t *testing.T) {
	bs := setupStore(t)

	keys, err := bs.Keys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 2)
}

func TestDelete(t *testing.T) {
	bs := setupStore(t)

	require.NoError(t, bs.Delete(context.Background(), "seventeentons"))
	require.NoError(t, bs.Delete(context.Background(), "seventeentons"))
	k, _ := bs.Keys(context.Background())
	assert.Len(t, k, 1)
}

func TestClear(t *testing.T) {
	bs := setupStore(t)

	require.NoError(t, bs.Clear(context.Background()))
	k, _ := bs.Keys(context.Background())
	require.Empty(t, k)
}

func TestPut(t *testing.T) {
	bs := setupStore(t)

	content := bytes.NewBufferString("here we go once again")
	err := bs.Put(context.Background(), "nested/eighteentons", content, storage.NoOverWrite)
	require.NoError(t, err)

	b, err := storage.ReadAll(context.Background(), bs, "nested/eighteentons")
	require.NoError(t, err)
	assert.Equal(t, "here we go once again", string(b))

	k, _ := bs.Keys(context.Background())
	assert.Len(t, k, 3)

	err = bs.Put(context.Background(), "nested/eighteentons", bytes.NewBufferString("again"), storage.NoOverWrite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExists))

	require.NoError(t, bs.Put(context.Background(), "nested/eighteentons", bytes.NewBufferString("again"), storage.OverWrite))
	b, err = storage.ReadAll(context.Background(), bs, "nested/eighteentons")
	require.NoError(t, err)
	assert.Equal(t, "again", string(b))
}

func TestInvalidKeys(t *testing.T) {
	bs := setupStore(t)

	for _, key := range []string{"", ".put-stage/x", "../outside"} {
		err := bs.Put(context.Background(), key, bytes.NewBufferString("x"), storage.OverWrite)
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrInvalidResource))
	}
}

func TestConcurrentPut(t *testing.T) {
	bs := setupStore(t)
	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, bs.Put(context.Background(), "shared/key", bytes.NewBufferString("same content"), storage.OverWrite))
		}()
	}
	wg.Wait()

	rdr, err := bs.Get(context.Background(), "shared/key")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "same content", string(b))

	keys, err := bs.Keys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 3, "staged files must not leak as keys")
}

func TestKeysPrefix(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := New(fs)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Put(context.Background(), "a/b/c/e"+strconv.Itoa(i), bytes.NewBufferString("x"), storage.OverWrite))
		require.NoError(t, store.Put(context.Background(), "a/d/f"+strconv.Itoa(i), bytes.NewBufferString("x"), storage.OverWrite))
	}

	keys, err := store.KeysPrefix(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, keys, 20)

	keys, err = store.KeysPrefix(context.Background(), "a/d/f")
	require.NoError(t, err)
	assert.Len(t, keys, 10)
	assert.Equal(t, "a/d/f0", keys[0])

	keys, err = store.KeysPrefix(context.Background(), "/a/b/")
	require.NoError(t, err)
	assert.Len(t, keys, 10)

	keys, err = store.KeysPrefix(context.Background(), "z")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func setupStore(t testing.TB) storage.Store {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "sixteentons", []byte("this is the text"), 0600))
	require.NoError(t, afero.WriteFile(fs, "seventeentons", []byte("this is the text for another thing"), 0600))

	s, err := New(fs)
	require.NoError(t, err)
	return s
}
