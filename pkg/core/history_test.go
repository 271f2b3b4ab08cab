package core

import (
	"context"
	"testing"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosure(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	k := diamond(t, r)

	for _, tc := range []struct {
		name     string
		stops    []cafs.Key
		tips     []cafs.Key
		depth    int
		expected []cafs.Key
	}{
		{name: "all", tips: []cafs.Key{k[5]}, depth: -1, expected: []cafs.Key{k[5], k[3], k[1], k[2], k[0]}},
		{name: "tips only", tips: []cafs.Key{k[5], k[6]}, depth: 0, expected: []cafs.Key{k[5], k[6]}},
		{name: "one generation", tips: []cafs.Key{k[6]}, depth: 1, expected: []cafs.Key{k[6], k[4]}},
		{name: "stops are included", stops: []cafs.Key{k[1], k[2]}, tips: []cafs.Key{k[5]}, depth: -1, expected: []cafs.Key{k[5], k[3], k[1], k[2]}},
		{name: "stop at tip", stops: []cafs.Key{k[6]}, tips: []cafs.Key{k[6]}, depth: -1, expected: []cafs.Key{k[6]}},
		{name: "unknown tip", tips: []cafs.Key{cafs.Sum([]byte("nope"))}, depth: -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			closure, err := r.Closure(ctx, tc.stops, tc.tips, tc.depth)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.expected, closure)
		})
	}
}

func TestHistory(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	k := diamond(t, r)

	h, err := r.History(ctx, []cafs.Key{k[5], k[6]}, -1)
	require.NoError(t, err)
	assert.Equal(t, 7, h.Len())
	assert.Equal(t, 8, h.Edges())
	assert.True(t, h.Has(k[0]))
	assert.ElementsMatch(t, []cafs.Key{k[1], k[2]}, h.Parents(k[3]))

	sorted, err := h.Sorted()
	require.NoError(t, err)
	require.Len(t, sorted, 7)
	position := make(map[cafs.Key]int, len(sorted))
	for i, key := range sorted {
		position[key] = i
	}
	for _, key := range sorted {
		c, ok := h.Commit(key)
		require.True(t, ok)
		for _, p := range c.Parents {
			assert.Less(t, position[key], position[p], "commits come before their parents")
		}
	}

	t.Run("bounded", func(t *testing.T) {
		h, err := r.History(ctx, []cafs.Key{k[5]}, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, h.Len())
		assert.Equal(t, 1, h.Edges())
		assert.Empty(t, h.Parents(k[3]), "parents outside of the history are omitted")
	})
}
