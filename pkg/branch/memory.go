package branch

import (
	"context"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/oneconcern/trellis/pkg/cafs"
)

var _ Table = &Memory{}

// Memory is an in-memory branch table.
//
// Branches are kept in an immutable radix tree: listing walks a snapshot, in lexicographic order.
type Memory struct {
	mx       sync.Mutex
	branches *iradix.Tree
	closed   bool
}

// NewMemory builds an empty in-memory table
func NewMemory() *Memory {
	return &Memory{branches: iradix.New()}
}

func (m *Memory) snapshot() (*iradix.Tree, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.branches, nil
}

func (m *Memory) Find(_ context.Context, name string) (cafs.Key, bool, error) {
	branches, err := m.snapshot()
	if err != nil {
		return cafs.Key{}, false, err
	}
	head, found := branches.Get([]byte(name))
	if !found {
		return cafs.Key{}, false, nil
	}
	return head.(cafs.Key), true, nil
}

func (m *Memory) Set(_ context.Context, name string, head cafs.Key) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.branches, _, _ = m.branches.Insert([]byte(name), head)
	return nil
}

func (m *Memory) TestAndSet(_ context.Context, name string, test, set *cafs.Key) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.closed {
		return false, ErrClosed
	}

	var current *cafs.Key
	if head, found := m.branches.Get([]byte(name)); found {
		k := head.(cafs.Key)
		current = &k
	}
	if !sameHead(current, test) {
		return false, nil
	}
	if set == nil {
		m.branches, _, _ = m.branches.Delete([]byte(name))
	} else {
		m.branches, _, _ = m.branches.Insert([]byte(name), *set)
	}
	return true, nil
}

func (m *Memory) Remove(_ context.Context, name string) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.branches, _, _ = m.branches.Delete([]byte(name))
	return nil
}

func (m *Memory) List(_ context.Context) ([]string, error) {
	branches, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, branches.Len())
	branches.Root().Walk(func(k []byte, _ interface{}) bool {
		names = append(names, string(k))
		return false
	})
	return names, nil
}

func (m *Memory) Close() error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.closed = true
	return nil
}
