package model

import (
	"sort"

	"github.com/oneconcern/trellis/pkg/cafs"
)

// Entry in a tree: either contents with metadata, or a subtree
type Entry struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Hash     cafs.Key `json:"hash" yaml:"hash"`
	Metadata Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ContentsEntry builds an entry pointing to contents
func ContentsEntry(hash cafs.Key, meta Metadata) Entry {
	return Entry{Kind: KindContents, Hash: hash, Metadata: meta}
}

// NodeEntry builds an entry pointing to a subtree
func NodeEntry(hash cafs.Key) Entry {
	return Entry{Kind: KindNode, Hash: hash}
}

// IsContents tells if this entry points to contents
func (e Entry) IsContents() bool {
	return e.Kind == KindContents
}

// IsNode tells if this entry points to a subtree
func (e Entry) IsNode() bool {
	return e.Kind == KindNode
}

// TreeEntry is a named entry in a tree
type TreeEntry struct {
	Name  string `json:"name" yaml:"name"`
	Entry `yaml:",inline"`
}

// Tree maps names to entries.
//
// Trees are values: methods returning a tree never alter the receiver.
// Entries are sorted by name, and names are unique.
type Tree struct {
	Entries []TreeEntry `json:"entries" yaml:"entries"`
}

// NewTree builds a tree from a list of entries.
//
// When a name is repeated, the last entry wins.
func NewTree(entries ...TreeEntry) Tree {
	var t Tree
	for _, e := range entries {
		t = t.With(e.Name, e.Entry)
	}
	return t
}

// EmptyTree is the tree without entries
func EmptyTree() Tree {
	return Tree{Entries: []TreeEntry{}}
}

// IsEmpty tells if the tree has no entries
func (t Tree) IsEmpty() bool {
	return len(t.Entries) == 0
}

// Len is the number of entries in the tree
func (t Tree) Len() int {
	return len(t.Entries)
}

func (t Tree) search(name string) (int, bool) {
	i := sort.Search(len(t.Entries), func(i int) bool {
		return t.Entries[i].Name >= name
	})
	return i, i < len(t.Entries) && t.Entries[i].Name == name
}

// Find an entry by name
func (t Tree) Find(name string) (Entry, bool) {
	i, found := t.search(name)
	if !found {
		return Entry{}, false
	}
	return t.Entries[i].Entry, true
}

// With returns a tree with an entry added or replaced
func (t Tree) With(name string, entry Entry) Tree {
	i, found := t.search(name)
	if found {
		if t.Entries[i].Entry == entry {
			return t
		}
		entries := make([]TreeEntry, len(t.Entries))
		copy(entries, t.Entries)
		entries[i].Entry = entry
		return Tree{Entries: entries}
	}

	entries := make([]TreeEntry, 0, len(t.Entries)+1)
	entries = append(entries, t.Entries[:i]...)
	entries = append(entries, TreeEntry{Name: name, Entry: entry})
	entries = append(entries, t.Entries[i:]...)
	return Tree{Entries: entries}
}

// Without returns a tree with an entry removed
func (t Tree) Without(name string) Tree {
	i, found := t.search(name)
	if !found {
		return t
	}
	entries := make([]TreeEntry, 0, len(t.Entries)-1)
	entries = append(entries, t.Entries[:i]...)
	entries = append(entries, t.Entries[i+1:]...)
	return Tree{Entries: entries}
}

// Names lists the names in the tree, in order
func (t Tree) Names() []string {
	names := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		names = append(names, e.Name)
	}
	return names
}

// Validate checks that a tree is well-formed: names are valid, sorted and unique, kinds are known
func (t Tree) Validate() error {
	for i, e := range t.Entries {
		if err := ValidateSegment(e.Name); err != nil {
			return ErrInvalidObject.Wrap(err)
		}
		if i > 0 && t.Entries[i-1].Name >= e.Name {
			return ErrInvalidObject.WrapMessage("tree entries are not sorted or not unique at %q", e.Name)
		}
		if !e.IsContents() && !e.IsNode() {
			return ErrInvalidObject.WrapMessage("unknown entry kind for %q", e.Name)
		}
		if e.IsNode() && e.Metadata != DefaultMetadata {
			return ErrInvalidObject.WrapMessage("node entry %q may not carry metadata", e.Name)
		}
	}
	return nil
}
