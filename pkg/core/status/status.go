// Package status exports errors produced by the core package.
package status

import (
	"github.com/oneconcern/trellis/pkg/errors"
)

var (
	// ErrInvalidArgument indicates an illegal structural operation, such as writing contents at the root
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates an object was not found
	ErrNotFound = errors.New("not found")

	// ErrMaxDepthReached indicates that the search for common ancestors exceeded its depth bound
	ErrMaxDepthReached = errors.New("max depth reached")

	// ErrTooManyLcas indicates that the search for common ancestors found more candidates than allowed
	ErrTooManyLcas = errors.New("too many lcas")

	// ErrConcurrentUpdate indicates that an update kept losing races against concurrent updates
	ErrConcurrentUpdate = errors.New("too many concurrent updates")

	// ErrNotFastForward indicates that a branch cannot be fast-forwarded to some commit
	ErrNotFastForward = errors.New("not a fast-forward")

	// ErrCorruptedSlice indicates that some object in a slice does not match its key
	ErrCorruptedSlice = errors.New("corrupted slice")
)
