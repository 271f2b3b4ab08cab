package core

import (
	"bytes"
	"context"
	"sort"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"go.uber.org/zap"
)

// mark tells from which side a commit has been reached
type mark uint8

const (
	markA      mark = 1
	markB      mark = 2
	markLca         = markA | markB
	markShared mark = 4 // strict ancestor of a common ancestor
)

func (m mark) live() bool {
	return m == markA || m == markB
}

func join(x, y mark) mark {
	if x == markShared || y == markShared {
		return markShared
	}
	return x | y
}

type lcaNode struct {
	key   cafs.Key
	depth int
}

// lcaSearch explores the ancestors of two commits breadth-first, in lockstep
type lcaSearch struct {
	r        *Repo
	settings lcaSettings

	marks      map[cafs.Key]mark
	parents    map[cafs.Key][]cafs.Key // parents of expanded commits
	queue      []lcaNode
	queued     map[cafs.Key]bool
	live       int // queued commits reached from one side only
	candidates map[cafs.Key]struct{}
}

// Lcas yields the lowest common ancestors of two commits: the common ancestors
// which are not ancestors of other common ancestors.
//
// The search fails with status.ErrMaxDepthReached when it needs to walk more than
// the max depth of generations, and with status.ErrTooManyLcas when it has more
// candidates than allowed.
//
// With several candidates, their ancestors are walked to eliminate candidates which are
// ancestors of others: this walk is bounded by the max depth as well.
func (r *Repo) Lcas(ctx context.Context, a, b cafs.Key, opts ...LcaOption) (lcas []cafs.Key, err error) {
	done := r.usage("lcas")
	defer func() { done(err) }()

	s := &lcaSearch{
		r:          r,
		settings:   r.lcaSettings(opts),
		marks:      make(map[cafs.Key]mark),
		parents:    make(map[cafs.Key][]cafs.Key),
		queued:     make(map[cafs.Key]bool),
		candidates: make(map[cafs.Key]struct{}),
	}
	lcas, err = s.run(ctx, a, b)
	if err != nil {
		r.l.Debug("lca search failed",
			zap.Stringer("a", a), zap.Stringer("b", b),
			zap.Int("max_depth", s.settings.maxDepth), zap.Int("n", s.settings.n),
			zap.Error(err),
		)
	}
	return lcas, err
}

func (s *lcaSearch) run(ctx context.Context, a, b cafs.Key) ([]cafs.Key, error) {
	if s.settings.maxDepth < 0 {
		return nil, status.ErrMaxDepthReached
	}
	if a == b {
		if s.settings.n < 1 {
			return nil, status.ErrTooManyLcas
		}
		return []cafs.Key{a}, nil
	}

	s.push(a, 0, markA)
	s.push(b, 0, markB)

	for {
		if len(s.candidates) > s.settings.n {
			return nil, status.ErrTooManyLcas.WrapMessage("more than %d", s.settings.n)
		}
		if len(s.queue) == 0 {
			break
		}
		if s.live == 0 {
			// all remaining commits are common ancestors: keep walking only to eliminate
			// candidates which are ancestors of other candidates
			if len(s.candidates) <= 1 {
				break
			}
			node := s.pop()
			if node.depth > s.settings.maxDepth {
				// some candidate may still be an ancestor of another one
				return nil, status.ErrMaxDepthReached.WrapMessage("%d: %d candidates left", s.settings.maxDepth, len(s.candidates))
			}
			if err := s.expand(ctx, node); err != nil {
				return nil, err
			}
			continue
		}

		node := s.pop()
		if node.depth > s.settings.maxDepth {
			return nil, status.ErrMaxDepthReached.WrapMessage("%d", s.settings.maxDepth)
		}
		if err := s.expand(ctx, node); err != nil {
			return nil, err
		}
	}

	lcas := make([]cafs.Key, 0, len(s.candidates))
	for k := range s.candidates {
		lcas = append(lcas, k)
	}
	sort.Slice(lcas, func(i, j int) bool {
		return bytes.Compare(lcas[i][:], lcas[j][:]) < 0
	})
	return lcas, nil
}

func (s *lcaSearch) push(k cafs.Key, depth int, m mark) {
	_, seen := s.marks[k]
	s.set(k, m)
	if seen {
		return
	}
	s.queue = append(s.queue, lcaNode{key: k, depth: depth})
	s.queued[k] = true
	if s.marks[k].live() {
		s.live++
	}
}

func (s *lcaSearch) pop() lcaNode {
	node := s.queue[0]
	s.queue = s.queue[1:]
	delete(s.queued, node.key)
	if s.marks[node.key].live() {
		s.live--
	}
	return node
}

func (s *lcaSearch) expand(ctx context.Context, node lcaNode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	parents, err := s.r.parents(ctx, node.key)
	if err != nil {
		return err
	}
	s.parents[node.key] = parents

	m := s.marks[node.key]
	if m == markLca {
		m = markShared
	}
	for _, p := range parents {
		s.push(p, node.depth+1, m)
	}
	return nil
}

// set raises the mark of a commit and propagates it to its known ancestors
func (s *lcaSearch) set(k cafs.Key, m mark) {
	old := s.marks[k]
	next := join(old, m)
	if next == old {
		return
	}
	s.marks[k] = next

	if s.queued[k] && old.live() && !next.live() {
		s.live--
	}
	switch {
	case next == markLca:
		s.candidates[k] = struct{}{}
	case old == markLca:
		delete(s.candidates, k)
	}

	parents, expanded := s.parents[k]
	if !expanded {
		return
	}
	if next == markLca {
		next = markShared
	}
	for _, p := range parents {
		s.set(p, next)
	}
}
