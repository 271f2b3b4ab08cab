package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLcasChain(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	k := chain(t, r, 5)

	for _, tc := range []struct {
		name     string
		a, b     int
		maxDepth int
		expected int
		err      error
	}{
		{name: "parent", a: 3, b: 4, maxDepth: 0, expected: 3},
		{name: "grand parent", a: 2, b: 4, maxDepth: 1, expected: 2},
		{name: "too deep", a: 1, b: 4, maxDepth: 1, err: status.ErrMaxDepthReached},
		{name: "deep enough", a: 1, b: 4, maxDepth: 2, expected: 1},
		{name: "reversed", a: 4, b: 1, maxDepth: 2, expected: 1},
		{name: "root", a: 0, b: 4, maxDepth: 3, expected: 0},
		{name: "same", a: 2, b: 2, maxDepth: 0, expected: 2},
		{name: "negative depth", a: 3, b: 4, maxDepth: -1, err: status.ErrMaxDepthReached},
	} {
		t.Run(tc.name, func(t *testing.T) {
			lcas, err := r.Lcas(ctx, k[tc.a], k[tc.b], LcaMaxDepth(tc.maxDepth))
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []cafs.Key{k[tc.expected]}, lcas)
		})
	}
}

func TestLcasDiamond(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	k := diamond(t, r)

	// find the smallest sufficient depth
	depth := 0
	var (
		lcas []cafs.Key
		err  error
	)
	for ; depth < 10; depth++ {
		lcas, err = r.Lcas(ctx, k[5], k[6], LcaMaxDepth(depth))
		if err == nil {
			break
		}
		require.ErrorIs(t, err, status.ErrMaxDepthReached)
	}
	require.NoError(t, err)
	assert.ElementsMatch(t, []cafs.Key{k[1], k[2]}, lcas)
	// k1 and k2 are found at depth 2: telling that neither is an ancestor of the other
	// requires walking down to k0
	assert.Equal(t, 3, depth)

	_, err = r.Lcas(ctx, k[5], k[6], LcaMaxDepth(depth-1))
	require.ErrorIs(t, err, status.ErrMaxDepthReached)

	t.Run("too many", func(t *testing.T) {
		_, err := r.Lcas(ctx, k[5], k[6], LcaMax(1))
		require.ErrorIs(t, err, status.ErrTooManyLcas)
	})

	t.Run("merge commits", func(t *testing.T) {
		lcas, err := r.Lcas(ctx, k[3], k[4])
		require.NoError(t, err)
		assert.ElementsMatch(t, []cafs.Key{k[1], k[2]}, lcas)
	})

	t.Run("ancestor", func(t *testing.T) {
		lcas, err := r.Lcas(ctx, k[0], k[6])
		require.NoError(t, err)
		assert.Equal(t, []cafs.Key{k[0]}, lcas)
	})

	t.Run("ancestors of common ancestors are excluded", func(t *testing.T) {
		x := testCommit(t, r, "shortcut", k[3], k[0])
		lcas, err := r.Lcas(ctx, x, k[4])
		require.NoError(t, err)
		assert.ElementsMatch(t, []cafs.Key{k[1], k[2]}, lcas)
	})

	t.Run("criss-cross", func(t *testing.T) {
		// k3 and k4 are both common ancestors of x and y, and k1, k2 are common
		// ancestors of k3 and k4
		x := testCommit(t, r, "x", k[3], k[4])
		y := testCommit(t, r, "y", k[4], k[3])
		lcas, err := r.Lcas(ctx, x, y)
		require.NoError(t, err)
		assert.ElementsMatch(t, []cafs.Key{k[3], k[4]}, lcas)
	})
}

func TestLcasCandidateAncestorOfCandidate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	// c2 <- x1 <- ... <- x5 <- c1, and both a and b merge c1 and c2:
	// c2 is a common ancestor, but also an ancestor of c1
	c2 := testCommit(t, r, "c2")
	x := c2
	for i := 1; i <= 5; i++ {
		x = testCommit(t, r, fmt.Sprintf("x%d", i), x)
	}
	c1 := testCommit(t, r, "c1", x)
	a := testCommit(t, r, "a", c1, c2)
	b := testCommit(t, r, "b", c1, c2)

	for depth := 0; depth < 6; depth++ {
		_, err := r.Lcas(ctx, a, b, LcaMaxDepth(depth))
		require.ErrorIsf(t, err, status.ErrMaxDepthReached, "max depth %d", depth)
	}

	lcas, err := r.Lcas(ctx, a, b, LcaMaxDepth(6))
	require.NoError(t, err)
	assert.Equal(t, []cafs.Key{c1}, lcas)

	lcas, err = r.Lcas(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, []cafs.Key{c1}, lcas)
}

func TestLcasUnrelated(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	a := chain(t, r, 3)
	b := testCommit(t, r, "other root")
	lcas, err := r.Lcas(ctx, a[2], b)
	require.NoError(t, err)
	assert.Empty(t, lcas)
}
