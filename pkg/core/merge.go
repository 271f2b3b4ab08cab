package core

import (
	"bytes"
	"context"
	"sort"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/oneconcern/trellis/pkg/merge"
	"github.com/oneconcern/trellis/pkg/model"
	"go.uber.org/zap"
)

// MergeTrees merges two trees against their common ancestor, if any.
//
// Contents present on both sides are merged with the merge function registered for their path.
// Conflicts are reported as *merge.Conflict, located at the path where they occurred.
func (r *Repo) MergeTrees(ctx context.Context, old merge.Old[cafs.Key], ours, theirs cafs.Key) (merged cafs.Key, err error) {
	done := r.usage("merge_trees")
	defer func() { done(err) }()

	merged, err = r.mergeTrees(ctx, model.Root, old, ours, theirs)
	if err != nil && r.MetricsEnabled() && errors.Is(err, merge.ErrConflict) {
		r.m.Volume.Merges.conflict("tree")
	}
	return merged, err
}

func (r *Repo) mergeTrees(ctx context.Context, path model.Path, old merge.Old[cafs.Key], ours, theirs cafs.Key) (cafs.Key, error) {
	if ours == theirs {
		return ours, nil
	}
	base, hasBase, err := old(ctx)
	if err != nil {
		return cafs.Key{}, err
	}
	switch {
	case hasBase && base == ours:
		return theirs, nil
	case hasBase && base == theirs:
		return ours, nil
	}

	baseTree := model.EmptyTree()
	if hasBase {
		if baseTree, err = r.tree(ctx, base); err != nil {
			return cafs.Key{}, err
		}
	}
	ourTree, err := r.tree(ctx, ours)
	if err != nil {
		return cafs.Key{}, err
	}
	theirTree, err := r.tree(ctx, theirs)
	if err != nil {
		return cafs.Key{}, err
	}

	names := make(map[string]struct{}, ourTree.Len()+theirTree.Len())
	for _, name := range ourTree.Names() {
		names[name] = struct{}{}
	}
	for _, name := range theirTree.Names() {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	entries := make([]model.TreeEntry, 0, len(sorted))
	for _, name := range sorted {
		if err := ctx.Err(); err != nil {
			return cafs.Key{}, err
		}
		o, hasOld := baseTree.Find(name)
		a, hasOurs := ourTree.Find(name)
		b, hasTheirs := theirTree.Find(name)

		entry, found, err := r.mergeEntries(ctx, path.Append(name), o, hasOld, a, hasOurs, b, hasTheirs)
		if err != nil {
			return cafs.Key{}, err
		}
		if found {
			entries = append(entries, model.TreeEntry{Name: name, Entry: entry})
		}
	}
	return r.AddTree(ctx, model.NewTree(entries...))
}

func (r *Repo) mergeEntries(ctx context.Context, path model.Path, o model.Entry, hasOld bool, a model.Entry, hasOurs bool, b model.Entry, hasTheirs bool) (model.Entry, bool, error) {
	switch {
	case !hasOurs && !hasTheirs:
		return model.Entry{}, false, nil
	case !hasOurs || !hasTheirs:
		present := a
		if !hasOurs {
			present = b
		}
		switch {
		case !hasOld:
			return present, true, nil
		case o == present:
			return model.Entry{}, false, nil
		case o.IsContents() && present.IsContents():
			return r.mergeDeleted(ctx, path, o, a, hasOurs, b, hasTheirs)
		case o.IsNode() && present.IsNode():
			// a deleted subtree merges as an empty one
			ours, theirs := r.emptyTree, r.emptyTree
			if hasOurs {
				ours = a.Hash
			} else {
				theirs = b.Hash
			}
			merged, err := r.mergeTrees(ctx, path, merge.Ancestor(o.Hash), ours, theirs)
			if err != nil || merged == r.emptyTree {
				return model.Entry{}, false, err
			}
			return model.NodeEntry(merged), true, nil
		default:
			return model.Entry{}, false, merge.AtPath(merge.Conflictf("add/del"), path.String())
		}
	case a == b:
		return a, true, nil
	case hasOld && o == a:
		return b, true, nil
	case hasOld && o == b:
		return a, true, nil
	}

	switch {
	case a.IsNode() && b.IsNode():
		old := merge.NoAncestor[cafs.Key]()
		if hasOld && o.IsNode() {
			old = merge.Ancestor(o.Hash)
		}
		merged, err := r.mergeTrees(ctx, path, old, a.Hash, b.Hash)
		if err != nil {
			return model.Entry{}, false, err
		}
		if merged == r.emptyTree {
			return model.Entry{}, false, nil
		}
		return model.NodeEntry(merged), true, nil

	case a.IsContents() && b.IsContents():
		entry, err := r.mergeContents(ctx, path, o, hasOld && o.IsContents(), a, b)
		if err != nil {
			return model.Entry{}, false, merge.AtPath(err, path.String())
		}
		return entry, true, nil

	default:
		return model.Entry{}, false, merge.AtPath(merge.Conflictf("contents/node"), path.String())
	}
}

func (r *Repo) mergeContents(ctx context.Context, path model.Path, o model.Entry, hasOld bool, a, b model.Entry) (model.Entry, error) {
	ours, err := r.contentsOf(ctx, a.Hash)
	if err != nil {
		return model.Entry{}, err
	}
	theirs, err := r.contentsOf(ctx, b.Hash)
	if err != nil {
		return model.Entry{}, err
	}

	oldContents := merge.NoAncestor[[]byte]()
	oldMeta := merge.NoAncestor[model.Metadata]()
	if hasOld {
		oldContents = merge.Memo(func(ctx context.Context) ([]byte, bool, error) {
			return r.FindContents(ctx, o.Hash)
		})
		oldMeta = merge.Ancestor(o.Metadata)
	}

	merged, err := r.mergers.Lookup(path.String()).Merge(ctx, oldContents, ours, theirs)
	if err != nil {
		return model.Entry{}, err
	}
	meta, err := merge.Default[model.Metadata]().Merge(ctx, oldMeta, a.Metadata, b.Metadata)
	if err != nil {
		return model.Entry{}, err
	}

	k, err := r.AddContents(ctx, merged)
	if err != nil {
		return model.Entry{}, err
	}
	return model.ContentsEntry(k, meta), nil
}

// mergeDeleted resolves contents deleted on one side and modified on the other:
// the merge function registered for the path decides, lifted to optional contents.
func (r *Repo) mergeDeleted(ctx context.Context, path model.Path, o, a model.Entry, hasOurs bool, b model.Entry, hasTheirs bool) (model.Entry, bool, error) {
	side := func(e model.Entry, found bool) (merge.Optional[[]byte], error) {
		if !found {
			return merge.None[[]byte](), nil
		}
		data, err := r.contentsOf(ctx, e.Hash)
		if err != nil {
			return merge.None[[]byte](), err
		}
		return merge.Some(data), nil
	}
	ours, err := side(a, hasOurs)
	if err != nil {
		return model.Entry{}, false, err
	}
	theirs, err := side(b, hasTheirs)
	if err != nil {
		return model.Entry{}, false, err
	}
	old := merge.Memo(func(ctx context.Context) (merge.Optional[[]byte], bool, error) {
		data, found, err := r.FindContents(ctx, o.Hash)
		if err != nil || !found {
			return merge.None[[]byte](), false, err
		}
		return merge.Some(data), true, nil
	})

	merged, err := merge.Option(r.mergers.Lookup(path.String()), bytes.Equal).Merge(ctx, old, ours, theirs)
	if err != nil {
		return model.Entry{}, false, merge.AtPath(err, path.String())
	}
	if !merged.Valid {
		return model.Entry{}, false, nil
	}

	k, err := r.AddContents(ctx, merged.Value)
	if err != nil {
		return model.Entry{}, false, err
	}
	// metadata follow the version which is kept
	for _, e := range []model.Entry{a, b, o} {
		if e.IsContents() && e.Hash == k {
			return e, true, nil
		}
	}
	meta := a.Metadata
	if !hasOurs {
		meta = b.Metadata
	}
	return model.ContentsEntry(k, meta), true, nil
}

func (r *Repo) contentsOf(ctx context.Context, k cafs.Key) ([]byte, error) {
	data, found, err := r.FindContents(ctx, k)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, status.ErrNotFound.WrapMessage("contents %v", k)
	}
	return data, nil
}

// MergeCommits merges two commits.
//
// When one commit is an ancestor of the other, the descendant is returned and no
// commit is created. Otherwise, the trees are merged against the tree of their lowest
// common ancestor, and a new commit is created with parents ours and theirs. Several lowest
// common ancestors are first merged into a virtual ancestor.
//
// Failures to find common ancestors are reported as conflicts.
func (r *Repo) MergeCommits(ctx context.Context, ours, theirs cafs.Key, info model.Info, opts ...LcaOption) (merged cafs.Key, err error) {
	done := r.usage("merge_commits")
	defer func() { done(err) }()

	merged, err = r.mergeCommits(ctx, ours, theirs, info, opts)
	if err != nil && r.MetricsEnabled() && errors.Is(err, merge.ErrConflict) {
		r.m.Volume.Merges.conflict("commit")
	}
	return merged, err
}

func (r *Repo) mergeCommits(ctx context.Context, ours, theirs cafs.Key, info model.Info, opts []LcaOption) (cafs.Key, error) {
	if ours == theirs {
		return ours, nil
	}
	a, err := r.commit(ctx, ours)
	if err != nil {
		return cafs.Key{}, err
	}
	b, err := r.commit(ctx, theirs)
	if err != nil {
		return cafs.Key{}, err
	}

	lcas, err := r.Lcas(ctx, ours, theirs, opts...)
	if err != nil {
		return cafs.Key{}, &merge.Conflict{Msg: "lca", Err: err}
	}
	if len(lcas) == 1 {
		switch lcas[0] {
		case ours:
			return theirs, nil
		case theirs:
			return ours, nil
		}
	}

	old := merge.NoAncestor[cafs.Key]()
	if len(lcas) > 0 {
		base, err := r.virtualBase(ctx, lcas, opts)
		if err != nil {
			return cafs.Key{}, err
		}
		c, err := r.commit(ctx, base)
		if err != nil {
			return cafs.Key{}, err
		}
		old = merge.Ancestor(c.Node)
	}

	tree, err := r.mergeTrees(ctx, model.Root, old, a.Node, b.Node)
	if err != nil {
		return cafs.Key{}, err
	}
	merged, err := r.addCommit(ctx, model.NewCommit(tree, []cafs.Key{ours, theirs}, info))
	if err != nil {
		return cafs.Key{}, err
	}
	r.l.Debug("merged commits",
		zap.Stringer("ours", ours), zap.Stringer("theirs", theirs),
		zap.Int("lcas", len(lcas)), zap.Stringer("merged", merged),
	)
	return merged, nil
}

// virtualBase merges several common ancestors into one commit
func (r *Repo) virtualBase(ctx context.Context, lcas []cafs.Key, opts []LcaOption) (cafs.Key, error) {
	base := lcas[0]
	for _, next := range lcas[1:] {
		var err error
		base, err = r.mergeCommits(ctx, base, next, r.infoFunc("virtual merge base"), opts)
		if err != nil {
			return cafs.Key{}, err
		}
	}
	return base, nil
}
