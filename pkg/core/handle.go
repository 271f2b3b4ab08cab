package core

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/oneconcern/trellis/pkg/merge"
	"github.com/oneconcern/trellis/pkg/model"
	"go.uber.org/zap"
)

var errLostRace = errors.New("head moved concurrently")

// Handle operates on the head of a branch, or on a detached head.
//
// Reads observe the head at the time of the call. Updates create a new commit
// on top of the head, and move the head with test-and-set, retrying when
// the head moved concurrently.
type Handle struct {
	repo     *Repo
	name     string
	detached *detachedHead
}

type detachedHead struct {
	mx   sync.Mutex
	head cafs.Key
	born bool
}

// Name of the branch. Detached handles have no name.
func (h *Handle) Name() string {
	return h.name
}

// IsDetached tells if this handle is not bound to a branch
func (h *Handle) IsDetached() bool {
	return h.detached != nil
}

// Repo this handle belongs to
func (h *Handle) Repo() *Repo {
	return h.repo
}

// Head yields the current head. found is false for unborn branches.
func (h *Handle) Head(ctx context.Context) (head cafs.Key, found bool, err error) {
	if h.detached != nil {
		h.detached.mx.Lock()
		defer h.detached.mx.Unlock()
		return h.detached.head, h.detached.born, nil
	}
	return h.repo.branches.Find(ctx, h.name)
}

// GetHead yields the current head, and fails with status.ErrNotFound on unborn branches
func (h *Handle) GetHead(ctx context.Context) (cafs.Key, error) {
	head, found, err := h.Head(ctx)
	if err != nil {
		return cafs.Key{}, err
	}
	if !found {
		return cafs.Key{}, status.ErrNotFound.WrapMessage("branch %q has no head", h.name)
	}
	return head, nil
}

// Tree yields the tree of the head. Unborn branches have an empty tree.
func (h *Handle) Tree(ctx context.Context) (cafs.Key, error) {
	head, found, err := h.Head(ctx)
	if err != nil || !found {
		return h.repo.emptyTree, err
	}
	c, err := h.repo.commit(ctx, head)
	if err != nil {
		return cafs.Key{}, err
	}
	return c.Node, nil
}

// FindEntry yields the entry at some path
func (h *Handle) FindEntry(ctx context.Context, path model.Path) (model.Entry, bool, error) {
	tree, err := h.Tree(ctx)
	if err != nil {
		return model.Entry{}, false, err
	}
	return h.repo.Get(ctx, tree, path)
}

// Find yields the contents at some path
func (h *Handle) Find(ctx context.Context, path model.Path) ([]byte, bool, error) {
	entry, found, err := h.FindEntry(ctx, path)
	if err != nil || !found || !entry.IsContents() {
		return nil, false, err
	}
	data, err := h.repo.contentsOf(ctx, entry.Hash)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// FindTree yields the key of the tree at some path. The root path yields the tree of the head.
func (h *Handle) FindTree(ctx context.Context, path model.Path) (cafs.Key, bool, error) {
	entry, found, err := h.FindEntry(ctx, path)
	if err != nil || !found || !entry.IsNode() {
		return cafs.Key{}, false, err
	}
	return entry.Hash, true, nil
}

// Mem tells if there are contents at some path
func (h *Handle) Mem(ctx context.Context, path model.Path) (bool, error) {
	entry, found, err := h.FindEntry(ctx, path)
	return found && entry.IsContents(), err
}

// List the entries of the tree at some path
func (h *Handle) List(ctx context.Context, path model.Path) ([]model.TreeEntry, error) {
	tree, err := h.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return h.repo.List(ctx, tree, path)
}

// History of the head, limited to depth generations when depth >= 0
func (h *Handle) History(ctx context.Context, depth int) (*History, error) {
	head, found, err := h.Head(ctx)
	if err != nil {
		return nil, err
	}
	var heads []cafs.Key
	if found {
		heads = append(heads, head)
	}
	return h.repo.History(ctx, heads, depth)
}

// Set contents at some path, with default metadata
func (h *Handle) Set(ctx context.Context, path model.Path, data []byte, info model.Info) error {
	return h.SetWithMetadata(ctx, path, data, model.DefaultMetadata, info)
}

// SetWithMetadata sets contents at some path
func (h *Handle) SetWithMetadata(ctx context.Context, path model.Path, data []byte, meta model.Metadata, info model.Info) error {
	if path.IsEmpty() {
		return status.ErrInvalidArgument.WrapMessage("cannot set contents at the root")
	}
	k, err := h.repo.AddContents(ctx, data)
	if err != nil {
		return err
	}
	entry := model.ContentsEntry(k, meta)
	return h.setEntry(ctx, "set", path, &entry, info)
}

// SetTree replaces the subtree at some path. The tree must exist.
func (h *Handle) SetTree(ctx context.Context, path model.Path, tree cafs.Key, info model.Info) error {
	has, err := h.repo.HasTree(ctx, tree)
	if err != nil {
		return err
	}
	if !has {
		return status.ErrInvalidArgument.WrapMessage("unknown tree %v", tree)
	}
	entry := model.NodeEntry(tree)
	return h.setEntry(ctx, "set_tree", path, &entry, info)
}

// Remove whatever is at some path. Removing an absent path does not create any commit.
func (h *Handle) Remove(ctx context.Context, path model.Path, info model.Info) error {
	return h.setEntry(ctx, "remove", path, nil, info)
}

func (h *Handle) setEntry(ctx context.Context, kind string, path model.Path, entry *model.Entry, info model.Info) error {
	_, err := h.update(ctx, kind, info, func(ctx context.Context, tree cafs.Key) (cafs.Key, bool, error) {
		next, err := h.repo.Update(ctx, tree, path, entry)
		return next, true, err
	})
	return err
}

// TestAndSet sets the contents at some path if the current contents are test.
//
// An invalid test expects the path to be absent. An invalid set removes the path.
// It returns false when the test fails.
func (h *Handle) TestAndSet(ctx context.Context, path model.Path, test, set merge.Optional[[]byte], info model.Info) (bool, error) {
	var entry *model.Entry
	if set.Valid {
		if path.IsEmpty() {
			return false, status.ErrInvalidArgument.WrapMessage("cannot set contents at the root")
		}
		k, err := h.repo.AddContents(ctx, set.Value)
		if err != nil {
			return false, err
		}
		e := model.ContentsEntry(k, model.DefaultMetadata)
		entry = &e
	}

	return h.update(ctx, "test_and_set", info, func(ctx context.Context, tree cafs.Key) (cafs.Key, bool, error) {
		current, found, err := h.repo.Get(ctx, tree, path)
		if err != nil {
			return cafs.Key{}, false, err
		}
		switch {
		case !test.Valid && found:
			return tree, false, nil
		case test.Valid && (!found || !current.IsContents() || current.Hash != cafs.Sum(test.Value)):
			return tree, false, nil
		}
		next, err := h.repo.Update(ctx, tree, path, entry)
		return next, true, err
	})
}

// update applies some change to the tree of the head, then commits it.
//
// The change is reapplied as long as the head moves concurrently. It is not applied when
// f returns false. No commit is created when the tree is unchanged.
func (h *Handle) update(ctx context.Context, kind string, info model.Info, f func(context.Context, cafs.Key) (cafs.Key, bool, error)) (applied bool, err error) {
	done := h.repo.usage(kind)
	defer func() { done(err) }()

	err = h.retry(ctx, kind, func() error {
		head, born, err := h.Head(ctx)
		if err != nil {
			return err
		}
		tree := h.repo.emptyTree
		var parents []cafs.Key
		if born {
			c, err := h.repo.commit(ctx, head)
			if err != nil {
				return err
			}
			tree = c.Node
			parents = []cafs.Key{head}
		}

		next, proceed, err := f(ctx, tree)
		if err != nil {
			return err
		}
		applied = proceed
		if !proceed || next == tree {
			return nil
		}

		commit, err := h.repo.addCommit(ctx, model.NewCommit(next, parents, info))
		if err != nil {
			return err
		}
		var test *cafs.Key
		if born {
			test = &head
		}
		return h.moveHead(ctx, test, &commit)
	})
	return applied, err
}

// moveHead sets the head with test-and-set, and reports a lost race with errLostRace
func (h *Handle) moveHead(ctx context.Context, test, set *cafs.Key) error {
	ok, err := h.testAndSetHead(ctx, test, set)
	if err != nil {
		return err
	}
	if !ok {
		return errLostRace
	}
	return nil
}

// retry runs some operation until it does not lose races against concurrent updates
func (h *Handle) retry(ctx context.Context, kind string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Millisecond
	bo.MaxInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = h.repo.retryTimeout

	err := backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !errors.Is(err, errLostRace) {
			return backoff.Permanent(err)
		}
		return err
	},
		backoff.WithContext(bo, ctx),
		func(err error, d time.Duration) {
			if h.repo.MetricsEnabled() {
				h.repo.m.Volume.Merges.retry(kind)
			}
			h.repo.l.Debug("head moved concurrently: retrying",
				zap.String("branch", h.name), zap.String("op", kind), zap.Duration("after", d))
		},
	)
	if errors.Is(err, errLostRace) {
		return status.ErrConcurrentUpdate.WrapMessage("%s on branch %q", kind, h.name)
	}
	return err
}

// SetHead moves the head to some commit, unconditionally
func (h *Handle) SetHead(ctx context.Context, commit cafs.Key) error {
	if err := h.repo.requireCommit(ctx, commit); err != nil {
		return err
	}
	if h.detached != nil {
		h.detached.mx.Lock()
		defer h.detached.mx.Unlock()
		h.detached.head, h.detached.born = commit, true
		return nil
	}
	return h.repo.branches.Set(ctx, h.name, commit)
}

// TestAndSetHead atomically moves the head to set if it currently is test.
//
// A nil test expects an unborn branch. A nil set removes the branch.
func (h *Handle) TestAndSetHead(ctx context.Context, test, set *cafs.Key) (bool, error) {
	if set != nil {
		if err := h.repo.requireCommit(ctx, *set); err != nil {
			return false, err
		}
	}
	return h.testAndSetHead(ctx, test, set)
}

func (h *Handle) testAndSetHead(ctx context.Context, test, set *cafs.Key) (bool, error) {
	if h.detached == nil {
		return h.repo.branches.TestAndSet(ctx, h.name, test, set)
	}

	d := h.detached
	d.mx.Lock()
	defer d.mx.Unlock()
	switch {
	case test == nil && d.born, test != nil && (!d.born || d.head != *test):
		return false, nil
	case set == nil:
		d.head, d.born = cafs.Key{}, false
	default:
		d.head, d.born = *set, true
	}
	return true, nil
}

// FastForward moves the head to target, if the head is an ancestor of target.
//
// Unborn branches are always fast-forwarded. It returns false, without any change,
// when the head is not an ancestor of target, or when this cannot be decided within
// the bounds of the search for common ancestors.
func (h *Handle) FastForward(ctx context.Context, target cafs.Key, opts ...LcaOption) (ok bool, err error) {
	done := h.repo.usage("fast_forward")
	defer func() { done(err) }()

	if err = h.repo.requireCommit(ctx, target); err != nil {
		return false, err
	}
	head, born, err := h.Head(ctx)
	if err != nil {
		return false, err
	}
	if !born {
		return h.testAndSetHead(ctx, nil, &target)
	}
	if head == target {
		return true, nil
	}

	lcas, err := h.repo.Lcas(ctx, head, target, opts...)
	switch {
	case errors.Is(err, status.ErrMaxDepthReached), errors.Is(err, status.ErrTooManyLcas):
		h.repo.l.Debug("cannot fast-forward", zap.String("branch", h.name), zap.Error(err))
		return false, nil
	case err != nil:
		return false, err
	case len(lcas) != 1 || lcas[0] != head:
		return false, nil
	}
	return h.testAndSetHead(ctx, &head, &target)
}

// MergeWithCommit merges some commit into the head.
//
// Unborn branches are set to the commit.
func (h *Handle) MergeWithCommit(ctx context.Context, commit cafs.Key, info model.Info, opts ...LcaOption) (err error) {
	done := h.repo.usage("merge_with_commit")
	defer func() { done(err) }()

	if err = h.repo.requireCommit(ctx, commit); err != nil {
		return err
	}
	return h.retry(ctx, "merge", func() error {
		head, born, err := h.Head(ctx)
		if err != nil {
			return err
		}
		if !born {
			return h.moveHead(ctx, nil, &commit)
		}
		merged, err := h.repo.mergeCommits(ctx, head, commit, info, opts)
		if err != nil {
			if h.repo.MetricsEnabled() && errors.Is(err, merge.ErrConflict) {
				h.repo.m.Volume.Merges.conflict("commit")
			}
			return err
		}
		if merged == head {
			return nil
		}
		return h.moveHead(ctx, &head, &merged)
	})
}

// MergeWithBranch merges the head of another branch into the head. Unborn branches are ignored.
func (h *Handle) MergeWithBranch(ctx context.Context, name string, info model.Info, opts ...LcaOption) error {
	other, found, err := h.repo.FindBranch(ctx, name)
	if err != nil || !found {
		return err
	}
	return h.MergeWithCommit(ctx, other, info, opts...)
}

// MergeInto merges the head into another handle
func (h *Handle) MergeInto(ctx context.Context, into *Handle, info model.Info, opts ...LcaOption) error {
	head, found, err := h.Head(ctx)
	if err != nil || !found {
		return err
	}
	return into.MergeWithCommit(ctx, head, info, opts...)
}

// Lcas yields the lowest common ancestors of the head and some commit
func (h *Handle) Lcas(ctx context.Context, commit cafs.Key, opts ...LcaOption) ([]cafs.Key, error) {
	head, err := h.GetHead(ctx)
	if err != nil {
		return nil, err
	}
	return h.repo.Lcas(ctx, head, commit, opts...)
}
