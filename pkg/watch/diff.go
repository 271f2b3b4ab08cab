package watch

import "fmt"

// DiffKind tells how a value changed
type DiffKind uint8

const (
	// KindAdded is a value which appeared
	KindAdded DiffKind = iota + 1

	// KindUpdated is a value which changed
	KindUpdated

	// KindRemoved is a value which disappeared
	KindRemoved
)

func (k DiffKind) String() string {
	switch k {
	case KindAdded:
		return "added"
	case KindUpdated:
		return "updated"
	case KindRemoved:
		return "removed"
	default:
		return fmt.Sprintf("diff(%d)", uint8(k))
	}
}

// Diff describes a change of value: Old is set for updates and removals, New for additions and updates
type Diff[V any] struct {
	Kind DiffKind
	Old  V
	New  V
}

// Added builds the diff of a new value
func Added[V any](v V) Diff[V] {
	return Diff[V]{Kind: KindAdded, New: v}
}

// Updated builds the diff of a changed value
func Updated[V any](old, v V) Diff[V] {
	return Diff[V]{Kind: KindUpdated, Old: old, New: v}
}

// Removed builds the diff of a removed value
func Removed[V any](old V) Diff[V] {
	return Diff[V]{Kind: KindRemoved, Old: old}
}

// Between computes the diff between two optional values.
//
// It returns false when there is no change.
func Between[V any](old V, hadOld bool, v V, hasNew bool, equal func(a, b V) bool) (Diff[V], bool) {
	switch {
	case !hadOld && !hasNew:
		return Diff[V]{}, false
	case !hadOld:
		return Added(v), true
	case !hasNew:
		return Removed(old), true
	case equal(old, v):
		return Diff[V]{}, false
	default:
		return Updated(old, v), true
	}
}

// Values yields the optional old and new values of a diff
func (d Diff[V]) Values() (old V, hadOld bool, v V, hasNew bool) {
	return d.Old, d.Kind != KindAdded, d.New, d.Kind != KindRemoved
}
