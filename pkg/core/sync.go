package core

import (
	"context"
	"fmt"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/oneconcern/trellis/pkg/model"
	"go.uber.org/zap"
)

// Remote is a repository to synchronize with
type Remote interface {
	// Head of a remote branch
	Head(ctx context.Context, branch string) (cafs.Key, bool, error)

	// Fetch a slice to advance to the head of a remote branch, knowing that the local repository
	// has the commits in have. The slice spans at most depth generations when depth >= 0.
	Fetch(ctx context.Context, branch string, have []cafs.Key, depth int) (*model.Slice, cafs.Key, bool, error)

	// Push a slice, and move the remote branch from expected to head. A nil expected
	// stands for an unborn branch. It returns false when the remote branch has moved.
	Push(ctx context.Context, branch string, slice *model.Slice, expected *cafs.Key, head cafs.Key) (bool, error)
}

var _ Remote = &LocalRemote{}

// LocalRemote is a remote in the same process.
//
// Slices are exchanged in their JSON encoding.
type LocalRemote struct {
	repo *Repo
}

// NewLocalRemote exposes a repository as a remote
func NewLocalRemote(repo *Repo) *LocalRemote {
	return &LocalRemote{repo: repo}
}

// Head of a remote branch
func (l *LocalRemote) Head(ctx context.Context, branch string) (cafs.Key, bool, error) {
	return l.repo.FindBranch(ctx, branch)
}

// Fetch a slice from the remote repository
func (l *LocalRemote) Fetch(ctx context.Context, branch string, have []cafs.Key, depth int) (*model.Slice, cafs.Key, bool, error) {
	head, found, err := l.repo.FindBranch(ctx, branch)
	if err != nil || !found {
		return nil, cafs.Key{}, false, err
	}
	slice, err := l.repo.Export(ctx, ExportMax(head), ExportMin(have...), ExportDepth(depth))
	if err != nil {
		return nil, cafs.Key{}, false, err
	}
	slice, err = transfer(slice)
	if err != nil {
		return nil, cafs.Key{}, false, err
	}
	return slice, head, true, nil
}

// Push a slice to the remote repository
func (l *LocalRemote) Push(ctx context.Context, branch string, slice *model.Slice, expected *cafs.Key, head cafs.Key) (bool, error) {
	slice, err := transfer(slice)
	if err != nil {
		return false, err
	}
	if err := l.repo.Import(ctx, slice); err != nil {
		return false, err
	}
	h, err := l.repo.Branch(branch)
	if err != nil {
		return false, err
	}
	return h.TestAndSetHead(ctx, expected, &head)
}

// transfer a slice through its encoding
func transfer(slice *model.Slice) (*model.Slice, error) {
	data, err := model.EncodeSlice(slice)
	if err != nil {
		return nil, err
	}
	return model.DecodeSlice(data)
}

// Fetch the objects needed to advance to the head of a remote branch, and return that head.
//
// With depth >= 0, at most depth generations of commits are fetched: a depth of 0 fetches the
// head commit only, which can be used as a head although its parents are missing.
func (r *Repo) Fetch(ctx context.Context, remote Remote, branch string, depth int) (head cafs.Key, found bool, err error) {
	done := r.usage("fetch")
	defer func() { done(err) }()

	local, err := r.Heads(ctx)
	if err != nil {
		return cafs.Key{}, false, err
	}
	have := make([]cafs.Key, 0, len(local))
	for _, k := range local {
		have = append(have, k)
	}

	slice, head, found, err := remote.Fetch(ctx, branch, have, depth)
	if err != nil || !found {
		return cafs.Key{}, false, err
	}
	if err = r.Import(ctx, slice); err != nil {
		return cafs.Key{}, false, err
	}
	r.l.Debug("fetched", zap.String("branch", branch), zap.Stringer("head", head), zap.Int("commits", len(slice.Commits)))
	return head, true, nil
}

// PullMode tells how a pulled head is applied
type PullMode uint8

const (
	// PullFastForward only moves the head forward
	PullFastForward PullMode = iota

	// PullMerge merges the remote head
	PullMerge

	// PullSet replaces the head
	PullSet
)

func (m PullMode) String() string {
	switch m {
	case PullFastForward:
		return "fast-forward"
	case PullMerge:
		return "merge"
	case PullSet:
		return "set"
	default:
		return fmt.Sprintf("pull(%d)", uint8(m))
	}
}

// ParsePullMode reads a pull mode from its name
func ParsePullMode(s string) (PullMode, error) {
	for _, m := range []PullMode{PullFastForward, PullMerge, PullSet} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, status.ErrInvalidArgument.WrapMessage("unknown pull mode %q", s)
}

// Pull fetches the head of a remote branch with its full history, and applies it.
//
// It returns false when nothing was pulled: the remote branch does not exist, or it cannot
// be fast-forwarded to.
func (h *Handle) Pull(ctx context.Context, remote Remote, branch string, mode PullMode, info model.Info, opts ...LcaOption) (bool, error) {
	head, found, err := h.repo.Fetch(ctx, remote, branch, -1)
	if err != nil || !found {
		return false, err
	}

	switch mode {
	case PullFastForward:
		return h.FastForward(ctx, head, opts...)
	case PullMerge:
		if err := h.MergeWithCommit(ctx, head, info, opts...); err != nil {
			return false, err
		}
		return true, nil
	case PullSet:
		if err := h.SetHead(ctx, head); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, status.ErrInvalidArgument.WrapMessage("unknown pull mode %v", mode)
	}
}

// Push the head to a remote branch, which must be an ancestor of the head.
//
// Commits are pushed over at most depth generations when depth >= 0. Pushing fails with
// status.ErrNotFastForward when the remote branch is not an ancestor of the head. It returns
// false when the remote branch moved during the push.
func (h *Handle) Push(ctx context.Context, remote Remote, branch string, depth int, opts ...LcaOption) (ok bool, err error) {
	done := h.repo.usage("push")
	defer func() { done(err) }()

	head, err := h.GetHead(ctx)
	if err != nil {
		return false, err
	}
	current, found, err := remote.Head(ctx, branch)
	if err != nil {
		return false, err
	}

	var (
		expected *cafs.Key
		exports  = []ExportOption{ExportMax(head), ExportDepth(depth)}
	)
	if found {
		if current == head {
			return true, nil
		}
		has, err := h.repo.HasCommit(ctx, current)
		if err != nil {
			return false, err
		}
		if !has {
			return false, status.ErrNotFastForward.WrapMessage("unknown remote head %v: fetch first", current)
		}
		lcas, err := h.repo.Lcas(ctx, head, current, opts...)
		if err != nil {
			return false, status.ErrNotFastForward.Wrap(err)
		}
		if len(lcas) != 1 || lcas[0] != current {
			return false, status.ErrNotFastForward.WrapMessage("remote head %v", current)
		}
		expected = &current
		exports = append(exports, ExportMin(current))
	}

	slice, err := h.repo.Export(ctx, exports...)
	if err != nil {
		return false, err
	}
	return remote.Push(ctx, branch, slice, expected, head)
}
