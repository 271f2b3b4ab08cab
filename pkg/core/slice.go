package core

import (
	"context"

	"github.com/oneconcern/trellis/pkg/branch"
	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/oneconcern/trellis/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExportOption tunes the export of a slice
type ExportOption func(*exportSettings)

type exportSettings struct {
	full     bool
	depth    int
	min      []cafs.Key
	max      []cafs.Key
	hasMax   bool
	branches []string
	all      bool
}

// ExportFull includes the trees and contents of commits. This is the default.
// Otherwise, only commits are exported.
func ExportFull(full bool) ExportOption {
	return func(s *exportSettings) {
		s.full = full
	}
}

// ExportDepth limits the export to depth generations of commits from max (unbounded when negative)
func ExportDepth(depth int) ExportOption {
	return func(s *exportSettings) {
		s.depth = depth
	}
}

// ExportMin stops the export at some commits, which are included
func ExportMin(commits ...cafs.Key) ExportOption {
	return func(s *exportSettings) {
		s.min = append(s.min, commits...)
	}
}

// ExportMax exports the commits reachable from some commits.
//
// By default, the heads of all branches are exported, together with the branches.
func ExportMax(commits ...cafs.Key) ExportOption {
	return func(s *exportSettings) {
		s.max = append(s.max, commits...)
		s.hasMax = true
	}
}

// ExportBranches exports some branches: their heads are part of max
func ExportBranches(names ...string) ExportOption {
	return func(s *exportSettings) {
		s.branches = append(s.branches, names...)
	}
}

// Export a slice of the repository
func (r *Repo) Export(ctx context.Context, opts ...ExportOption) (slice *model.Slice, err error) {
	done := r.usage("export")
	defer func() { done(err) }()

	s := exportSettings{full: true, depth: -1}
	for _, apply := range opts {
		apply(&s)
	}

	slice = model.NewSlice()
	heads := make(map[string]cafs.Key)
	if !s.hasMax && len(s.branches) == 0 {
		if heads, err = r.Heads(ctx); err != nil {
			return nil, err
		}
	}
	for _, name := range s.branches {
		head, found, err := r.FindBranch(ctx, name)
		if err != nil {
			return nil, err
		}
		if found {
			heads[name] = head
		}
	}
	tips := append([]cafs.Key{}, s.max...)
	for name, head := range heads {
		tips = append(tips, head)
		slice.Branches = append(slice.Branches, model.SliceBranch{Name: name, Head: head})
	}

	commits, err := r.Closure(ctx, s.min, tips, s.depth)
	if err != nil {
		return nil, err
	}

	x := exporter{
		r:        r,
		slice:    slice,
		trees:    make(map[cafs.Key]struct{}),
		contents: make(map[cafs.Key]struct{}),
	}
	for _, k := range commits {
		c, err := r.commit(ctx, k)
		if err != nil {
			return nil, err
		}
		slice.Commits = append(slice.Commits, model.SliceCommit{Key: k, Commit: c})
		if s.full {
			if err := x.tree(ctx, c.Node); err != nil {
				return nil, err
			}
		}
	}
	slice.Normalize()

	r.l.Debug("exported slice",
		zap.Int("commits", len(slice.Commits)),
		zap.Int("trees", len(slice.Trees)),
		zap.Int("contents", len(slice.Contents)),
		zap.Int("branches", len(slice.Branches)),
	)
	return slice, nil
}

type exporter struct {
	r        *Repo
	slice    *model.Slice
	trees    map[cafs.Key]struct{}
	contents map[cafs.Key]struct{}
}

func (x *exporter) tree(ctx context.Context, k cafs.Key) error {
	if _, ok := x.trees[k]; ok {
		return nil
	}
	x.trees[k] = struct{}{}

	t, err := x.r.tree(ctx, k)
	if err != nil {
		return err
	}
	x.slice.Trees = append(x.slice.Trees, model.SliceTree{Key: k, Tree: t})

	for _, e := range t.Entries {
		if e.IsNode() {
			if err := x.tree(ctx, e.Hash); err != nil {
				return err
			}
			continue
		}
		if _, ok := x.contents[e.Hash]; ok {
			continue
		}
		x.contents[e.Hash] = struct{}{}
		data, err := x.r.contentsOf(ctx, e.Hash)
		if err != nil {
			return err
		}
		x.slice.Contents = append(x.slice.Contents, model.SliceContents{Key: e.Hash, Value: data})
	}
	return nil
}

// ImportOption tunes the import of a slice
type ImportOption func(*importSettings)

type importSettings struct {
	branches    bool
	concurrency int
}

// ImportBranches sets the branches of the slice. By default, only objects are imported.
func ImportBranches(enabled bool) ImportOption {
	return func(s *importSettings) {
		s.branches = enabled
	}
}

// ImportConcurrency bounds the number of objects written concurrently. The default is 8.
func ImportConcurrency(n int) ImportOption {
	return func(s *importSettings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Import a slice.
//
// The keys of all objects are verified before anything is written: a slice with
// some object not matching its key fails with status.ErrCorruptedSlice.
func (r *Repo) Import(ctx context.Context, slice *model.Slice, opts ...ImportOption) (err error) {
	done := r.usage("import")
	defer func() { done(err) }()

	s := importSettings{concurrency: defaultImportConcurrency}
	for _, apply := range opts {
		apply(&s)
	}
	if err = verifySlice(slice); err != nil {
		return err
	}

	// contents, then trees, then commits: a commit is never written before its tree
	if err = writeAll(ctx, s.concurrency, len(slice.Contents), func(ctx context.Context, i int) error {
		_, err := r.AddContents(ctx, slice.Contents[i].Value)
		return err
	}); err != nil {
		return err
	}
	if err = writeAll(ctx, s.concurrency, len(slice.Trees), func(ctx context.Context, i int) error {
		_, err := r.AddTree(ctx, slice.Trees[i].Tree)
		return err
	}); err != nil {
		return err
	}
	if err = writeAll(ctx, s.concurrency, len(slice.Commits), func(ctx context.Context, i int) error {
		_, err := r.addCommit(ctx, slice.Commits[i].Commit)
		return err
	}); err != nil {
		return err
	}
	if !s.branches {
		return nil
	}
	for _, b := range slice.Branches {
		if err = r.SetBranch(ctx, b.Name, b.Head); err != nil {
			return err
		}
	}
	return nil
}

const defaultImportConcurrency = 8

func writeAll(ctx context.Context, limit, n int, write func(context.Context, int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return write(gctx, i)
		})
	}
	return g.Wait()
}

func verifySlice(slice *model.Slice) error {
	if slice.Version != model.CurrentSliceVersion {
		return status.ErrCorruptedSlice.Wrap(model.ErrUnsupportedSlice.WrapMessage("%d", slice.Version))
	}
	for _, c := range slice.Contents {
		if !cafs.Verify(c.Key, c.Value) {
			return status.ErrCorruptedSlice.WrapMessage("contents %v", c.Key)
		}
	}
	for _, t := range slice.Trees {
		if err := t.Tree.Validate(); err != nil {
			return status.ErrCorruptedSlice.Wrap(err)
		}
		k, err := model.TreeKey(t.Tree)
		if err != nil {
			return err
		}
		if k != t.Key {
			return status.ErrCorruptedSlice.WrapMessage("tree %v", t.Key)
		}
	}
	for _, c := range slice.Commits {
		k, err := model.CommitKey(c.Commit)
		if err != nil {
			return err
		}
		if k != c.Key {
			return status.ErrCorruptedSlice.WrapMessage("commit %v", c.Key)
		}
	}
	for _, b := range slice.Branches {
		if err := branch.ValidateName(b.Name); err != nil {
			return status.ErrCorruptedSlice.Wrap(err)
		}
	}
	return nil
}
