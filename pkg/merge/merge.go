package merge

import (
	"context"
	"fmt"

	"github.com/oneconcern/trellis/pkg/errors"
)

// ErrConflict is the cause of all merge conflicts
var ErrConflict = errors.New("merge conflict")

// Conflict reports a merge which cannot be resolved automatically
type Conflict struct {
	Path string
	Msg  string
	Err  error // optional cause
}

// Conflictf builds a new conflict
func Conflictf(format string, args ...interface{}) *Conflict {
	return &Conflict{Msg: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (c *Conflict) Error() string {
	msg := c.Msg
	if c.Path != "" {
		msg = c.Path + ": " + msg
	}
	if c.Err != nil {
		msg = msg + ": " + c.Err.Error()
	}
	return "conflict: " + msg
}

// Unwrap yields the cause of the conflict, if any
func (c *Conflict) Unwrap() error {
	return c.Err
}

// Is matches ErrConflict
func (c *Conflict) Is(target error) bool {
	return target == ErrConflict
}

// AtPath decorates a conflict with the path where it occurred.
//
// The innermost path wins: a conflict already located is returned unchanged.
// Other errors are returned unchanged.
func AtPath(err error, path string) error {
	var c *Conflict
	if !errors.As(err, &c) || c.Path != "" {
		return err
	}
	located := *c
	located.Path = path
	return &located
}

// Old yields the common ancestor of a merge: found is false when there is none
type Old[T any] func(context.Context) (value T, found bool, err error)

// Merge knows how to merge values of type T
type Merge[T any] interface {
	Merge(ctx context.Context, old Old[T], ours, theirs T) (T, error)
}

// Func adapts a function to the Merge interface
type Func[T any] func(ctx context.Context, old Old[T], ours, theirs T) (T, error)

// Merge implements the Merge interface
func (f Func[T]) Merge(ctx context.Context, old Old[T], ours, theirs T) (T, error) {
	return f(ctx, old, ours, theirs)
}

// Ancestor builds an Old from a known value
func Ancestor[T any](v T) Old[T] {
	return func(context.Context) (T, bool, error) {
		return v, true, nil
	}
}

// NoAncestor builds an Old without ancestor
func NoAncestor[T any]() Old[T] {
	return func(context.Context) (T, bool, error) {
		var zero T
		return zero, false, nil
	}
}

// Memo evaluates an ancestor at most once
func Memo[T any](old Old[T]) Old[T] {
	var (
		done  bool
		value T
		found bool
		err   error
	)
	return func(ctx context.Context) (T, bool, error) {
		if !done {
			value, found, err = old(ctx)
			done = err == nil
		}
		return value, found, err
	}
}
