package merge

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/oneconcern/trellis/pkg/errors"
)

var (
	// ErrUnknownStrategy is returned when resolving a merge strategy by an unregistered name
	ErrUnknownStrategy = errors.New("unknown merge strategy")

	// ErrInvalidPattern is returned when registering a merge function for a malformed glob
	ErrInvalidPattern = errors.New("invalid merge pattern")
)

// Bytes is the default merge for raw contents
func Bytes() Merge[[]byte] {
	return Idempotent(bytes.Equal)
}

// Strategy names known by the registry
const (
	StrategyDefault = "default"
	StrategyOurs    = "ours"
	StrategyTheirs  = "theirs"
	StrategySkip    = "skip"
	StrategyCounter = "counter"
)

// Strategy resolves a named merge strategy for raw contents
func Strategy(name string) (Merge[[]byte], error) {
	switch strings.ToLower(name) {
	case StrategyDefault, "":
		return Bytes(), nil
	case StrategyOurs:
		return Ours[[]byte](), nil
	case StrategyTheirs:
		return Theirs[[]byte](), nil
	case StrategySkip:
		return Skip[[]byte](), nil
	case StrategyCounter:
		return Like(Counter(), parseCounter, formatCounter), nil
	default:
		return nil, ErrUnknownStrategy.WrapMessage("%q", name)
	}
}

func parseCounter(b []byte) (int64, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func formatCounter(v int64) ([]byte, error) {
	return []byte(strconv.FormatInt(v, 10)), nil
}

type rule[T any] struct {
	pattern string
	matcher glob.Glob
	m       Merge[T]
}

// Registry resolves merge functions by path.
//
// Patterns are globs over slash-separated paths ("*" does not cross a separator,
// "**" does). Rules are evaluated in registration order: the first match wins.
type Registry[T any] struct {
	mx       sync.RWMutex
	rules    []rule[T]
	fallback Merge[T]
}

// NewRegistry builds a registry with some fallback merge function
func NewRegistry[T any](fallback Merge[T]) *Registry[T] {
	return &Registry[T]{fallback: fallback}
}

// Register a merge function for paths matching some pattern
func (r *Registry[T]) Register(pattern string, m Merge[T]) error {
	matcher, err := glob.Compile(strings.TrimPrefix(pattern, "/"), '/')
	if err != nil {
		return ErrInvalidPattern.WrapMessage("%q", pattern).Wrap(err)
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	r.rules = append(r.rules, rule[T]{pattern: pattern, matcher: matcher, m: m})
	return nil
}

// Lookup the merge function for a path
func (r *Registry[T]) Lookup(path string) Merge[T] {
	path = strings.TrimPrefix(path, "/")
	r.mx.RLock()
	defer r.mx.RUnlock()
	for _, rl := range r.rules {
		if rl.matcher.Match(path) {
			return rl.m
		}
	}
	return r.fallback
}

// Patterns lists the registered patterns, in order
func (r *Registry[T]) Patterns() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()
	patterns := make([]string, 0, len(r.rules))
	for _, rl := range r.rules {
		patterns = append(patterns, rl.pattern)
	}
	return patterns
}

// NewBytesRegistry builds a contents merge registry from a map of patterns to strategy names.
//
// Patterns are registered in lexicographic order, for determinism.
func NewBytesRegistry(strategies map[string]string) (*Registry[[]byte], error) {
	r := NewRegistry(Bytes())
	patterns := make([]string, 0, len(strategies))
	for p := range strategies {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	for _, p := range patterns {
		m, err := Strategy(strategies[p])
		if err != nil {
			return nil, err
		}
		if err := r.Register(p, m); err != nil {
			return nil, err
		}
	}
	return r, nil
}
