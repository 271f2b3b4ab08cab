package merge

import (
	"context"
	"testing"

	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	r, err := NewBytesRegistry(map[string]string{
		"counters/*": StrategyCounter,
		"logs/**":    StrategyOurs,
		"*.cfg":      StrategyTheirs,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"*.cfg", "counters/*", "logs/**"}, r.Patterns())

	v, err := r.Lookup("/counters/hits").Merge(ctx, Ancestor([]byte("10")), []byte("12"), []byte("15"))
	require.NoError(t, err)
	assert.Equal(t, "17", string(v))

	v, err = r.Lookup("/counters/new").Merge(ctx, NoAncestor[[]byte](), []byte("2"), []byte("3"))
	require.NoError(t, err)
	assert.Equal(t, "5", string(v))

	_, err = r.Lookup("/counters/bad").Merge(ctx, NoAncestor[[]byte](), []byte("x"), []byte("3"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	v, err = r.Lookup("/logs/a/b/c").Merge(ctx, NoAncestor[[]byte](), []byte("ours"), []byte("theirs"))
	require.NoError(t, err)
	assert.Equal(t, "ours", string(v))

	v, err = r.Lookup("app.cfg").Merge(ctx, NoAncestor[[]byte](), []byte("ours"), []byte("theirs"))
	require.NoError(t, err)
	assert.Equal(t, "theirs", string(v))

	// "*" doesn't cross separators: falls back to the default merge
	_, err = r.Lookup("/dir/app.cfg").Merge(ctx, NoAncestor[[]byte](), []byte("ours"), []byte("theirs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = NewBytesRegistry(map[string]string{"x": "unknown"})
	require.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Contains(t, err.Error(), `"unknown"`)

	err = r.Register("[", Bytes())
	require.ErrorIs(t, err, ErrInvalidPattern)
	assert.Len(t, r.Patterns(), 3)
}
