package model

import "github.com/oneconcern/trellis/pkg/errors"

var (
	// ErrInvalidPath indicates a malformed path or path segment
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidObject indicates that some decoded object violates the object model
	ErrInvalidObject = errors.New("invalid object")

	// ErrUnsupportedSlice indicates a slice with an unknown version
	ErrUnsupportedSlice = errors.New("unsupported slice version")
)
