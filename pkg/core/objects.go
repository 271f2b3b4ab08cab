package core

import (
	"context"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/oneconcern/trellis/pkg/model"
	storagestatus "github.com/oneconcern/trellis/pkg/storage/status"
)

// find fetches some object, with absence reported as not found
func find(ctx context.Context, fs cafs.Fs, k cafs.Key) ([]byte, bool, error) {
	data, err := fs.GetBytes(ctx, k)
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// AddContents stores some contents and returns its key
func (r *Repo) AddContents(ctx context.Context, data []byte) (cafs.Key, error) {
	res, err := r.contents.PutBytes(ctx, data)
	if err != nil {
		return cafs.Key{}, err
	}
	return res.Key, nil
}

// FindContents retrieves some contents. The returned bytes must not be mutated.
func (r *Repo) FindContents(ctx context.Context, k cafs.Key) ([]byte, bool, error) {
	return find(ctx, r.contents, k)
}

// HasContents tells if some contents is known
func (r *Repo) HasContents(ctx context.Context, k cafs.Key) (bool, error) {
	return r.contents.Has(ctx, k)
}

// AddTree stores a tree and returns its key
func (r *Repo) AddTree(ctx context.Context, t model.Tree) (cafs.Key, error) {
	data, err := model.EncodeTree(t)
	if err != nil {
		return cafs.Key{}, err
	}
	res, err := r.trees.PutBytes(ctx, data)
	if err != nil {
		return cafs.Key{}, err
	}
	return res.Key, nil
}

// FindTree retrieves a tree
func (r *Repo) FindTree(ctx context.Context, k cafs.Key) (model.Tree, bool, error) {
	data, found, err := find(ctx, r.trees, k)
	if err != nil || !found {
		return model.Tree{}, false, err
	}
	t, err := model.DecodeTree(data)
	if err != nil {
		return model.Tree{}, false, err
	}
	return t, true, nil
}

// HasTree tells if a tree is known
func (r *Repo) HasTree(ctx context.Context, k cafs.Key) (bool, error) {
	return r.trees.Has(ctx, k)
}

// tree retrieves a tree which must exist
func (r *Repo) tree(ctx context.Context, k cafs.Key) (model.Tree, error) {
	if k == r.emptyTree {
		return model.EmptyTree(), nil
	}
	t, found, err := r.FindTree(ctx, k)
	if err != nil {
		return model.Tree{}, err
	}
	if !found {
		return model.Tree{}, status.ErrNotFound.WrapMessage("tree %v", k)
	}
	return t, nil
}

// AddCommit stores a commit and returns its key.
//
// The tree and the parents must exist.
func (r *Repo) AddCommit(ctx context.Context, node cafs.Key, parents []cafs.Key, info model.Info) (cafs.Key, error) {
	if has, err := r.HasTree(ctx, node); err != nil {
		return cafs.Key{}, err
	} else if !has {
		return cafs.Key{}, status.ErrInvalidArgument.WrapMessage("unknown tree %v", node)
	}
	for _, p := range parents {
		if err := r.requireCommit(ctx, p); err != nil {
			return cafs.Key{}, err
		}
	}
	return r.addCommit(ctx, model.NewCommit(node, parents, info))
}

func (r *Repo) addCommit(ctx context.Context, c model.Commit) (cafs.Key, error) {
	data, err := model.EncodeCommit(c)
	if err != nil {
		return cafs.Key{}, err
	}
	res, err := r.commits.PutBytes(ctx, data)
	if err != nil {
		return cafs.Key{}, err
	}
	if r.MetricsEnabled() && !res.Found {
		r.m.Volume.Commits.Inc("commit", "add")
	}
	return res.Key, nil
}

// FindCommit retrieves a commit
func (r *Repo) FindCommit(ctx context.Context, k cafs.Key) (model.Commit, bool, error) {
	data, found, err := find(ctx, r.commits, k)
	if err != nil || !found {
		return model.Commit{}, false, err
	}
	c, err := model.DecodeCommit(data)
	if err != nil {
		return model.Commit{}, false, err
	}
	return c, true, nil
}

// HasCommit tells if a commit is known
func (r *Repo) HasCommit(ctx context.Context, k cafs.Key) (bool, error) {
	return r.commits.Has(ctx, k)
}

func (r *Repo) commit(ctx context.Context, k cafs.Key) (model.Commit, error) {
	c, found, err := r.FindCommit(ctx, k)
	if err != nil {
		return model.Commit{}, err
	}
	if !found {
		return model.Commit{}, status.ErrNotFound.WrapMessage("commit %v", k)
	}
	return c, nil
}

func (r *Repo) requireCommit(ctx context.Context, k cafs.Key) error {
	has, err := r.HasCommit(ctx, k)
	if err != nil {
		return err
	}
	if !has {
		return status.ErrInvalidArgument.WrapMessage("unknown commit %v", k)
	}
	return nil
}

// parents of a commit. Commits missing from the store, such as the parents of
// shallow commits, have no parents.
func (r *Repo) parents(ctx context.Context, k cafs.Key) ([]cafs.Key, error) {
	c, found, err := r.FindCommit(ctx, k)
	if err != nil || !found {
		return nil, err
	}
	return c.Parents, nil
}
