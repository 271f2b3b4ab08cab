package branch

import (
	"context"
	"regexp"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/errors"
)

var (
	// ErrInvalidName indicates a malformed branch name
	ErrInvalidName = errors.New("invalid branch name")

	// ErrClosed indicates that the table has been closed
	ErrClosed = errors.New("branch table is closed")
)

// Table maps branch names to commit keys.
//
// Unborn branches are absent from the table.
type Table interface {
	// Find the head of a branch
	Find(ctx context.Context, name string) (head cafs.Key, found bool, err error)

	// Set the head of a branch unconditionally, creating it if needed
	Set(ctx context.Context, name string, head cafs.Key) error

	// TestAndSet atomically sets the head of a branch to set, if its current head is test.
	//
	// A nil test means the branch is expected to be unborn; a nil set removes the branch.
	TestAndSet(ctx context.Context, name string, test, set *cafs.Key) (bool, error)

	// Remove a branch. Removing an unborn branch is not an error.
	Remove(ctx context.Context, name string) error

	// List all branches, in lexicographic order
	List(ctx context.Context) ([]string, error)

	Close() error
}

var nameRex = regexp.MustCompile(`^[A-Za-z0-9_\-.]+(/[A-Za-z0-9_\-.]+)*$`)

// ValidateName checks that a branch name is valid: one or several slash-separated
// segments of letters, digits, "_", "-" or "."; "." and ".." segments are reserved.
func ValidateName(name string) error {
	if !nameRex.MatchString(name) {
		return ErrInvalidName.WrapMessage("%q", name)
	}
	for start, i := 0, 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '/' {
			if seg := name[start:i]; seg == "." || seg == ".." {
				return ErrInvalidName.WrapMessage("%q", name)
			}
			start = i + 1
		}
	}
	return nil
}

// Ptr is a convenience to pass keys to TestAndSet
func Ptr(k cafs.Key) *cafs.Key {
	return &k
}

func sameHead(current *cafs.Key, test *cafs.Key) bool {
	switch {
	case current == nil && test == nil:
		return true
	case current == nil || test == nil:
		return false
	default:
		return *current == *test
	}
}
