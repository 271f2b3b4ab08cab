package model

import (
	"strings"
)

const pathSeparator = "/"

// Path locates an entry in a tree, as a sequence of names.
//
// The empty path denotes the root.
type Path []string

// Root is the empty path
var Root = Path{}

// ParsePath splits a slash-separated string into a path.
//
// Empty segments are ignored: "/a//b/" is the same as "a/b".
func ParsePath(s string) (Path, error) {
	parts := strings.Split(s, pathSeparator)
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if err := ValidateSegment(part); err != nil {
			return nil, err
		}
		p = append(p, part)
	}
	return p, nil
}

// MustParsePath parses a path and panics on error
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPath builds a path from segments
func NewPath(segments ...string) (Path, error) {
	for _, s := range segments {
		if err := ValidateSegment(s); err != nil {
			return nil, err
		}
	}
	p := make(Path, len(segments))
	copy(p, segments)
	return p, nil
}

// ValidateSegment checks that a name is usable in a tree
func ValidateSegment(s string) error {
	switch {
	case s == "":
		return ErrInvalidPath.WrapMessage("empty segment")
	case s == "." || s == "..":
		return ErrInvalidPath.WrapMessage("segment %q is reserved", s)
	case strings.Contains(s, pathSeparator):
		return ErrInvalidPath.WrapMessage("segment %q contains a separator", s)
	case strings.ContainsRune(s, 0):
		return ErrInvalidPath.WrapMessage("segment %q contains a NUL character", s)
	}
	return nil
}

func (p Path) String() string {
	return pathSeparator + strings.Join(p, pathSeparator)
}

// IsEmpty tells if the path is the root
func (p Path) IsEmpty() bool {
	return len(p) == 0
}

// Decons splits a path into its first segment and the rest
func (p Path) Decons() (string, Path, bool) {
	if len(p) == 0 {
		return "", nil, false
	}
	return p[0], p[1:], true
}

// Rdecons splits a path into its parent and its last segment
func (p Path) Rdecons() (Path, string, bool) {
	if len(p) == 0 {
		return nil, "", false
	}
	return p[:len(p)-1], p[len(p)-1], true
}

// Append builds a new path with an extra segment
func (p Path) Append(segment string) Path {
	q := make(Path, len(p), len(p)+1)
	copy(q, p)
	return append(q, segment)
}

// Concat builds a new path from two paths
func (p Path) Concat(o Path) Path {
	q := make(Path, 0, len(p)+len(o))
	q = append(q, p...)
	return append(q, o...)
}

// Equal tells if two paths are the same
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// HasPrefix tells if a path starts with another one
func (p Path) HasPrefix(o Path) bool {
	return len(p) >= len(o) && p[:len(o)].Equal(o)
}
