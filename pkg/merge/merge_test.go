package merge

import (
	"context"
	"testing"

	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	ctx := context.Background()
	m := Default[string]()

	type fixture struct {
		name     string
		old      Old[string]
		ours     string
		theirs   string
		expected string
		conflict bool
	}

	for _, toPin := range []fixture{
		{name: "same", old: NoAncestor[string](), ours: "a", theirs: "a", expected: "a"},
		{name: "same with ancestor", old: Ancestor("x"), ours: "a", theirs: "a", expected: "a"},
		{name: "theirs changed", old: Ancestor("a"), ours: "a", theirs: "b", expected: "b"},
		{name: "ours changed", old: Ancestor("b"), ours: "a", theirs: "b", expected: "a"},
		{name: "both changed", old: Ancestor("c"), ours: "a", theirs: "b", conflict: true},
		{name: "no ancestor", old: NoAncestor[string](), ours: "a", theirs: "b", conflict: true},
	} {
		testCase := toPin
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			v, err := m.Merge(ctx, testCase.old, testCase.ours, testCase.theirs)
			if testCase.conflict {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConflict))
				var c *Conflict
				require.True(t, errors.As(err, &c))
				assert.Equal(t, "default", c.Msg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, v)
		})
	}
}

func TestIdempotence(t *testing.T) {
	ctx := context.Background()
	for _, m := range []Merge[int64]{Default[int64](), Ours[int64](), Theirs[int64](), Skip[int64]()} {
		v, err := m.Merge(ctx, NoAncestor[int64](), 42, 42)
		require.NoError(t, err)
		assert.EqualValues(t, 42, v)
	}
}

func TestCombinators(t *testing.T) {
	ctx := context.Background()

	v, err := Ours[string]().Merge(ctx, Ancestor("o"), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = Theirs[string]().Merge(ctx, Ancestor("o"), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	v, err = Skip[string]().Merge(ctx, Ancestor("o"), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "o", v)

	v, err = Skip[string]().Merge(ctx, NoAncestor[string](), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	n, err := Counter().Merge(ctx, Ancestor[int64](10), 12, 15)
	require.NoError(t, err)
	assert.EqualValues(t, 17, n)
}

func TestOption(t *testing.T) {
	ctx := context.Background()
	m := Option(Default[string](), func(a, b string) bool { return a == b })

	type fixture struct {
		name     string
		old      Old[Optional[string]]
		ours     Optional[string]
		theirs   Optional[string]
		expected Optional[string]
		conflict bool
	}

	for _, toPin := range []fixture{
		{name: "both absent", old: Ancestor(Some("x")), ours: None[string](), theirs: None[string](), expected: None[string]()},
		{name: "added on one side", old: NoAncestor[Optional[string]](), ours: Some("a"), theirs: None[string](), expected: Some("a")},
		{name: "added on other side", old: Ancestor(None[string]()), ours: None[string](), theirs: Some("b"), expected: Some("b")},
		{name: "deleted unchanged", old: Ancestor(Some("a")), ours: Some("a"), theirs: None[string](), expected: None[string]()},
		{name: "modified and deleted", old: Ancestor(Some("a")), ours: Some("changed"), theirs: None[string](), conflict: true},
		{name: "both present", old: Ancestor(Some("a")), ours: Some("a"), theirs: Some("b"), expected: Some("b")},
		{name: "both present without ancestor", old: Ancestor(None[string]()), ours: Some("a"), theirs: Some("b"), conflict: true},
	} {
		testCase := toPin
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			v, err := m.Merge(ctx, testCase.old, testCase.ours, testCase.theirs)
			if testCase.conflict {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConflict))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, v)
		})
	}
}

func TestOptionDeletedAndModified(t *testing.T) {
	ctx := context.Background()
	equal := func(a, b string) bool { return a == b }
	old := Ancestor(Some("v0"))

	for _, toPin := range []struct {
		name     string
		m        Merge[string]
		ours     Optional[string]
		theirs   Optional[string]
		expected Optional[string]
	}{
		{name: "ours keeps our deletion", m: Ours[string](), ours: None[string](), theirs: Some("v1"), expected: None[string]()},
		{name: "ours keeps our change", m: Ours[string](), ours: Some("v1"), theirs: None[string](), expected: Some("v1")},
		{name: "theirs keeps their change", m: Theirs[string](), ours: None[string](), theirs: Some("v1"), expected: Some("v1")},
		{name: "theirs keeps their deletion", m: Theirs[string](), ours: Some("v1"), theirs: None[string](), expected: None[string]()},
		{name: "skip restores the ancestor", m: Skip[string](), ours: None[string](), theirs: Some("v1"), expected: Some("v0")},
	} {
		testCase := toPin
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			v, err := Option(testCase.m, equal).Merge(ctx, old, testCase.ours, testCase.theirs)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, v)
		})
	}

	_, err := Option(Default[string](), equal).Merge(ctx, old, None[string](), Some("v1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestAtPath(t *testing.T) {
	err := AtPath(Conflictf("default"), "/a/b")
	assert.EqualError(t, err, "conflict: /a/b: default")

	relocated := AtPath(err, "/a")
	assert.EqualError(t, relocated, "conflict: /a/b: default")

	other := errors.New("other")
	assert.Equal(t, other, AtPath(other, "/a"))

	wrapped := &Conflict{Msg: "lca", Err: other}
	assert.True(t, errors.Is(wrapped, other))
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.EqualError(t, wrapped, "conflict: lca: other")
}

func TestMemo(t *testing.T) {
	ctx := context.Background()
	calls := 0
	old := Memo[int](func(context.Context) (int, bool, error) {
		calls++
		return 1, true, nil
	})
	for i := 0; i < 3; i++ {
		v, found, err := old(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 1, v)
	}
	assert.Equal(t, 1, calls)
}
