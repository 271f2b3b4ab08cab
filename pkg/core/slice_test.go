package core

import (
	"context"
	"testing"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/oneconcern/trellis/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populated(t testing.TB) *Repo {
	r := newTestRepo(t)
	ctx := context.Background()
	h, err := r.Branch("main")
	require.NoError(t, err)
	require.NoError(t, h.Set(ctx, path("/a/b"), []byte("1"), testInfo("one")))
	require.NoError(t, h.Set(ctx, path("/a/c"), []byte("1"), testInfo("two")))
	require.NoError(t, h.Set(ctx, path("/d"), []byte(""), testInfo("three")))
	return r
}

func TestSliceRoundTrip(t *testing.T) {
	r := populated(t)
	ctx := context.Background()

	slice, err := r.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, slice.Commits, 3)
	assert.Len(t, slice.Contents, 2, "contents are deduplicated")
	require.Len(t, slice.Branches, 1)
	assert.Equal(t, "main", slice.Branches[0].Name)

	encoded, err := model.EncodeSlice(slice)
	require.NoError(t, err)
	decoded, err := model.DecodeSlice(encoded)
	require.NoError(t, err)
	again, err := model.EncodeSlice(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(encoded), string(again))

	target := newTestRepo(t)
	require.NoError(t, target.Import(ctx, decoded))
	names, err := target.Branches(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "branches are not imported by default")

	require.NoError(t, target.Import(ctx, decoded, ImportBranches(true), ImportConcurrency(1)))
	h, err := target.Branch("main")
	require.NoError(t, err)
	data, found, err := h.Find(ctx, path("/a/c"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", string(data))

	reexported, err := target.Export(ctx)
	require.NoError(t, err)
	reencoded, err := model.EncodeSlice(reexported)
	require.NoError(t, err)
	assert.Equal(t, string(encoded), string(reencoded))
}

func TestSliceOptions(t *testing.T) {
	r := populated(t)
	ctx := context.Background()
	h, err := r.Branch("main")
	require.NoError(t, err)
	head, err := h.GetHead(ctx)
	require.NoError(t, err)

	t.Run("commits only", func(t *testing.T) {
		slice, err := r.Export(ctx, ExportFull(false))
		require.NoError(t, err)
		assert.Len(t, slice.Commits, 3)
		assert.Empty(t, slice.Trees)
		assert.Empty(t, slice.Contents)
	})

	t.Run("depth", func(t *testing.T) {
		slice, err := r.Export(ctx, ExportMax(head), ExportDepth(0))
		require.NoError(t, err)
		require.Len(t, slice.Commits, 1)
		assert.Equal(t, head, slice.Commits[0].Key)
		assert.Empty(t, slice.Branches)
	})

	t.Run("min", func(t *testing.T) {
		c, err := r.commit(ctx, head)
		require.NoError(t, err)
		slice, err := r.Export(ctx, ExportBranches("main"), ExportMin(c.Parents...))
		require.NoError(t, err)
		assert.Len(t, slice.Commits, 2)
		assert.Len(t, slice.Branches, 1)
	})
}

func TestSliceCorrupted(t *testing.T) {
	r := populated(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name    string
		corrupt func(*model.Slice)
	}{
		{name: "contents", corrupt: func(s *model.Slice) { s.Contents[0].Value = []byte("tampered") }},
		{name: "tree", corrupt: func(s *model.Slice) { s.Trees[0].Key = cafs.Sum([]byte("x")) }},
		{name: "commit", corrupt: func(s *model.Slice) { s.Commits[0].Commit.Info.Message = "tampered" }},
		{name: "version", corrupt: func(s *model.Slice) { s.Version = 42 }},
		{name: "branch", corrupt: func(s *model.Slice) { s.Branches[0].Name = "../x" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			slice, err := r.Export(ctx)
			require.NoError(t, err)
			tc.corrupt(slice)

			target := newTestRepo(t)
			require.ErrorIs(t, target.Import(ctx, slice, ImportBranches(true)), status.ErrCorruptedSlice)

			empty, err := target.Export(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty.Commits, "nothing is written")
		})
	}
}
