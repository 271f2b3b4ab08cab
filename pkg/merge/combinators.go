package merge

import (
	"context"
)

// Idempotent merges values known to be equal, or changed on one side only.
//
// Merging a value with itself yields that value, whatever the ancestor.
// When both sides changed, this is a conflict.
func Idempotent[T any](equal func(a, b T) bool) Merge[T] {
	return Func[T](func(ctx context.Context, old Old[T], ours, theirs T) (T, error) {
		if equal(ours, theirs) {
			return ours, nil
		}
		ancestor, found, err := old(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		if found {
			switch {
			case equal(ancestor, ours):
				return theirs, nil
			case equal(ancestor, theirs):
				return ours, nil
			}
		}
		var zero T
		return zero, Conflictf("default")
	})
}

// Default is the idempotent merge for comparable values
func Default[T comparable]() Merge[T] {
	return Idempotent(func(a, b T) bool { return a == b })
}

// side picked by merges which ignore values
type side int

const (
	sideOurs side = iota + 1
	sideTheirs
	sideAncestor
)

// picker keeps one version whatever the values: as such, it also resolves
// a value deleted on one side and modified on the other, see Option.
type picker[T any] struct {
	side side
}

func (p picker[T]) Merge(ctx context.Context, old Old[T], ours, theirs T) (T, error) {
	switch p.side {
	case sideTheirs:
		return theirs, nil
	case sideAncestor:
		ancestor, found, err := old(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		if found {
			return ancestor, nil
		}
		return ours, nil
	default:
		return ours, nil
	}
}

// Ours always keeps our side
func Ours[T any]() Merge[T] {
	return picker[T]{side: sideOurs}
}

// Theirs always keeps their side
func Theirs[T any]() Merge[T] {
	return picker[T]{side: sideTheirs}
}

// Skip keeps the common ancestor, discarding changes from both sides.
//
// Without an ancestor, our side is kept.
func Skip[T any]() Merge[T] {
	return picker[T]{side: sideAncestor}
}

// Counter merges integers as counters: increments from both sides add up.
func Counter() Merge[int64] {
	return Func[int64](func(ctx context.Context, old Old[int64], ours, theirs int64) (int64, error) {
		ancestor, _, err := old(ctx)
		if err != nil {
			return 0, err
		}
		return ours + theirs - ancestor, nil
	})
}

// Optional is a value which may be absent
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// None is the absent value
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Option lifts a merge to optional values.
//
// A value absent on one side is:
//   - added, when absent in the ancestor;
//   - deleted, when unchanged from the ancestor on the other side;
//   - resolved by m when m is Ours, Theirs or Skip: the deletion is then a side like another;
//   - a conflict otherwise.
func Option[T any](m Merge[T], equal func(a, b T) bool) Merge[Optional[T]] {
	return Func[Optional[T]](func(ctx context.Context, old Old[Optional[T]], ours, theirs Optional[T]) (Optional[T], error) {
		switch {
		case !ours.Valid && !theirs.Valid:
			return None[T](), nil

		case ours.Valid && theirs.Valid:
			inner := func(ctx context.Context) (T, bool, error) {
				ancestor, found, err := old(ctx)
				if err != nil || !found || !ancestor.Valid {
					var zero T
					return zero, false, err
				}
				return ancestor.Value, true, nil
			}
			v, err := m.Merge(ctx, inner, ours.Value, theirs.Value)
			if err != nil {
				return None[T](), err
			}
			return Some(v), nil
		}

		present := ours
		if !present.Valid {
			present = theirs
		}
		ancestor, found, err := old(ctx)
		if err != nil {
			return None[T](), err
		}
		if !found || !ancestor.Valid {
			return present, nil
		}
		if equal(ancestor.Value, present.Value) {
			return None[T](), nil
		}
		if p, ok := m.(picker[T]); ok {
			switch p.side {
			case sideOurs:
				return ours, nil
			case sideTheirs:
				return theirs, nil
			case sideAncestor:
				return ancestor, nil
			}
		}
		return None[T](), Conflictf("add/del")
	})
}

// Like transports a merge on some type U to a type T, through conversion functions.
func Like[T, U any](m Merge[U], to func(T) (U, error), from func(U) (T, error)) Merge[T] {
	return Func[T](func(ctx context.Context, old Old[T], ours, theirs T) (T, error) {
		var zero T
		a, err := to(ours)
		if err != nil {
			return zero, Conflictf("cannot convert our side").withCause(err)
		}
		b, err := to(theirs)
		if err != nil {
			return zero, Conflictf("cannot convert their side").withCause(err)
		}
		inner := func(ctx context.Context) (U, bool, error) {
			var zeroU U
			ancestor, found, err := old(ctx)
			if err != nil || !found {
				return zeroU, false, err
			}
			v, err := to(ancestor)
			if err != nil {
				return zeroU, false, Conflictf("cannot convert ancestor").withCause(err)
			}
			return v, true, nil
		}
		merged, err := m.Merge(ctx, inner, a, b)
		if err != nil {
			return zero, err
		}
		res, err := from(merged)
		if err != nil {
			return zero, Conflictf("cannot convert merged value").withCause(err)
		}
		return res, nil
	})
}

func (c *Conflict) withCause(err error) *Conflict {
	c.Err = err
	return c
}
