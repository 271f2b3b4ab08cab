package storage_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/oneconcern/trellis/pkg/storage"
	"github.com/oneconcern/trellis/pkg/storage/localfs"
	"github.com/oneconcern/trellis/pkg/storage/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	store := storage.Instrument(zaptest.NewLogger(t), localfs.NewMem())
	assert.Equal(t, "localfs@memory", store.String())

	require.NoError(t, store.Put(ctx, "a/b", bytes.NewBufferString("content"), storage.NoOverWrite))
	err := store.Put(ctx, "a/b", bytes.NewBufferString("content"), storage.NoOverWrite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExists))

	has, err := store.Has(ctx, "a/b")
	require.NoError(t, err)
	assert.True(t, has)

	b, err := storage.ReadAll(ctx, store, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "content", string(b))

	other := localfs.NewMem()
	b, err = storage.ReadTee(ctx, store, "a/b", other, "c")
	require.NoError(t, err)
	assert.Equal(t, "content", string(b))

	keys, err := other.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, keys)

	keys, err = store.KeysPrefix(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, keys)

	require.NoError(t, store.Delete(ctx, "a/b"))
	_, err = store.Get(ctx, "a/b")
	assert.True(t, errors.Is(err, status.ErrNotExists))

	require.NoError(t, store.Clear(ctx))
}
