package core

import (
	"context"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Closure yields the commits reachable from tips, walking breadth-first.
//
// The walk does not go past commits in stops, which are included when reachable.
// With depth >= 0, the walk stops after depth generations: a depth of 0 yields the
// tips only. Commits missing from the store, such as the parents of shallow
// commits, are not part of the closure.
func (r *Repo) Closure(ctx context.Context, stops, tips []cafs.Key, depth int) ([]cafs.Key, error) {
	stop := make(map[cafs.Key]struct{}, len(stops))
	for _, k := range stops {
		stop[k] = struct{}{}
	}

	type queued struct {
		key   cafs.Key
		depth int
	}
	var (
		closure []cafs.Key
		queue   = make([]queued, 0, len(tips))
		seen    = make(map[cafs.Key]struct{})
	)
	for _, k := range tips {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			queue = append(queue, queued{key: k})
		}
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := queue[0]
		queue = queue[1:]

		c, found, err := r.FindCommit(ctx, q.key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		closure = append(closure, q.key)

		if _, ok := stop[q.key]; ok || (depth >= 0 && q.depth >= depth) {
			continue
		}
		for _, p := range c.Parents {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, queued{key: p, depth: q.depth + 1})
		}
	}
	return closure, nil
}

// History is a portion of the commit graph.
//
// Edges go from commits to their parents.
type History struct {
	g       *simple.DirectedGraph
	ids     map[cafs.Key]int64
	keys    []cafs.Key
	commits map[cafs.Key]model.Commit
}

// History loads the commits reachable from heads, within depth generations (unbounded when depth < 0)
func (r *Repo) History(ctx context.Context, heads []cafs.Key, depth int) (*History, error) {
	keys, err := r.Closure(ctx, nil, heads, depth)
	if err != nil {
		return nil, err
	}

	h := &History{
		g:       simple.NewDirectedGraph(),
		ids:     make(map[cafs.Key]int64, len(keys)),
		keys:    keys,
		commits: make(map[cafs.Key]model.Commit, len(keys)),
	}
	for i, k := range keys {
		h.ids[k] = int64(i)
		h.g.AddNode(simple.Node(i))
	}
	for _, k := range keys {
		c, err := r.commit(ctx, k)
		if err != nil {
			return nil, err
		}
		h.commits[k] = c
		for _, p := range c.Parents {
			if pid, ok := h.ids[p]; ok {
				h.g.SetEdge(h.g.NewEdge(simple.Node(h.ids[k]), simple.Node(pid)))
			}
		}
	}
	return h, nil
}

// Len is the number of commits
func (h *History) Len() int {
	return h.g.Nodes().Len()
}

// Edges is the number of parent links between commits of the history
func (h *History) Edges() int {
	return h.g.Edges().Len()
}

// Has tells if a commit is part of the history
func (h *History) Has(k cafs.Key) bool {
	_, ok := h.ids[k]
	return ok
}

// Commit yields a commit of the history
func (h *History) Commit(k cafs.Key) (model.Commit, bool) {
	c, ok := h.commits[k]
	return c, ok
}

// Parents of a commit, restricted to the history
func (h *History) Parents(k cafs.Key) []cafs.Key {
	id, ok := h.ids[k]
	if !ok {
		return nil
	}
	var parents []cafs.Key
	for _, p := range h.commits[k].Parents {
		if pid, ok := h.ids[p]; ok && h.g.HasEdgeFromTo(id, pid) {
			parents = append(parents, p)
		}
	}
	return parents
}

// Sorted lists commits in topological order: every commit comes before its parents
func (h *History) Sorted() ([]cafs.Key, error) {
	nodes, err := topo.SortStabilized(h.g, nil)
	if err != nil {
		return nil, err
	}
	sorted := make([]cafs.Key, 0, len(nodes))
	for _, n := range nodes {
		sorted = append(sorted, h.keys[n.ID()])
	}
	return sorted, nil
}
