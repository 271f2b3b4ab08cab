package core

import (
	"context"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/oneconcern/trellis/pkg/model"
)

// Get the entry at some path of a tree.
//
// The root path yields the tree itself. A path running through contents is not found.
func (r *Repo) Get(ctx context.Context, tree cafs.Key, path model.Path) (model.Entry, bool, error) {
	entry := model.NodeEntry(tree)
	for _, name := range path {
		if !entry.IsNode() {
			return model.Entry{}, false, nil
		}
		t, err := r.tree(ctx, entry.Hash)
		if err != nil {
			return model.Entry{}, false, err
		}
		var found bool
		entry, found = t.Find(name)
		if !found {
			return model.Entry{}, false, nil
		}
	}
	return entry, true, nil
}

// List the entries of the tree at some path. Contents and absent paths have no entries.
func (r *Repo) List(ctx context.Context, tree cafs.Key, path model.Path) ([]model.TreeEntry, error) {
	entry, found, err := r.Get(ctx, tree, path)
	if err != nil || !found || !entry.IsNode() {
		return nil, err
	}
	t, err := r.tree(ctx, entry.Hash)
	if err != nil {
		return nil, err
	}
	return t.Entries, nil
}

// Update sets or removes (when entry is nil) the entry at some path of a tree,
// and returns the key of the new tree.
//
// Only the trees along the path are rebuilt. Trees left empty are removed from their parent.
// Contents cannot be set at the root.
func (r *Repo) Update(ctx context.Context, tree cafs.Key, path model.Path, entry *model.Entry) (cafs.Key, error) {
	if entry != nil && entry.IsNode() && entry.Hash == r.emptyTree {
		entry = nil
	}
	if path.IsEmpty() {
		switch {
		case entry == nil:
			return r.emptyTree, nil
		case entry.IsContents():
			return cafs.Key{}, status.ErrInvalidArgument.WrapMessage("cannot set contents at the root")
		default:
			return entry.Hash, nil
		}
	}
	return r.update(ctx, tree, path, entry)
}

func (r *Repo) update(ctx context.Context, tree cafs.Key, path model.Path, entry *model.Entry) (cafs.Key, error) {
	t, err := r.tree(ctx, tree)
	if err != nil {
		return cafs.Key{}, err
	}
	name, rest, _ := path.Decons()
	current, exists := t.Find(name)

	child := entry
	if !rest.IsEmpty() {
		sub := r.emptyTree
		switch {
		case exists && current.IsNode():
			sub = current.Hash
		case entry == nil:
			// nothing to remove below absent or contents entries
			return tree, nil
		}
		updated, err := r.update(ctx, sub, rest, entry)
		if err != nil {
			return cafs.Key{}, err
		}
		child = nil
		if updated != r.emptyTree {
			e := model.NodeEntry(updated)
			child = &e
		}
	}

	var next model.Tree
	switch {
	case child == nil && !exists:
		return tree, nil
	case child == nil:
		next = t.Without(name)
	case exists && current == *child:
		return tree, nil
	default:
		next = t.With(name, *child)
	}
	return r.AddTree(ctx, next)
}
