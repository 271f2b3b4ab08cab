package model

import (
	"bytes"
	"sort"

	"github.com/oneconcern/trellis/pkg/cafs"
)

// Slice is a self-contained bundle of objects and branch heads
type Slice struct {
	Version  uint64          `json:"version" yaml:"version"`
	Contents []SliceContents `json:"contents" yaml:"contents"`
	Trees    []SliceTree     `json:"trees" yaml:"trees"`
	Commits  []SliceCommit   `json:"commits" yaml:"commits"`
	Branches []SliceBranch   `json:"branches" yaml:"branches"`
}

// SliceContents is some contents in a slice
type SliceContents struct {
	Key   cafs.Key `json:"key" yaml:"key"`
	Value []byte   `json:"value" yaml:"value"`
}

// SliceTree is a tree in a slice
type SliceTree struct {
	Key  cafs.Key `json:"key" yaml:"key"`
	Tree Tree     `json:"tree" yaml:"tree"`
}

// SliceCommit is a commit in a slice
type SliceCommit struct {
	Key    cafs.Key `json:"key" yaml:"key"`
	Commit Commit   `json:"commit" yaml:"commit"`
}

// SliceBranch is a branch head in a slice
type SliceBranch struct {
	Name string   `json:"name" yaml:"name"`
	Head cafs.Key `json:"head" yaml:"head"`
}

// NewSlice builds an empty slice
func NewSlice() *Slice {
	return &Slice{Version: CurrentSliceVersion}
}

// IsEmpty tells if the slice holds nothing
func (s *Slice) IsEmpty() bool {
	return len(s.Contents) == 0 && len(s.Trees) == 0 && len(s.Commits) == 0 && len(s.Branches) == 0
}

func lessKey(a, b cafs.Key) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// Normalize sorts objects by key and branches by name, and replaces nil
// lists with empty ones, so that equivalent slices have the same encoding
func (s *Slice) Normalize() {
	if s.Contents == nil {
		s.Contents = []SliceContents{}
	}
	for i := range s.Contents {
		if s.Contents[i].Value == nil {
			s.Contents[i].Value = []byte{}
		}
	}
	if s.Trees == nil {
		s.Trees = []SliceTree{}
	}
	for i := range s.Trees {
		if s.Trees[i].Tree.Entries == nil {
			s.Trees[i].Tree.Entries = []TreeEntry{}
		}
	}
	if s.Commits == nil {
		s.Commits = []SliceCommit{}
	}
	for i := range s.Commits {
		if len(s.Commits[i].Commit.Parents) == 0 {
			s.Commits[i].Commit.Parents = nil
		}
	}
	if s.Branches == nil {
		s.Branches = []SliceBranch{}
	}

	sort.Slice(s.Contents, func(i, j int) bool { return lessKey(s.Contents[i].Key, s.Contents[j].Key) })
	sort.Slice(s.Trees, func(i, j int) bool { return lessKey(s.Trees[i].Key, s.Trees[j].Key) })
	sort.Slice(s.Commits, func(i, j int) bool { return lessKey(s.Commits[i].Key, s.Commits[j].Key) })
	sort.Slice(s.Branches, func(i, j int) bool { return s.Branches[i].Name < s.Branches[j].Name })
}

// EncodeSlice renders the JSON encoding of a normalized slice.
//
// Decoding then encoding again yields the same bytes.
func EncodeSlice(s *Slice) ([]byte, error) {
	s.Normalize()
	return canonical.Marshal(s)
}

// DecodeSlice parses a slice
func DecodeSlice(data []byte) (*Slice, error) {
	var s Slice
	if err := canonical.Unmarshal(data, &s); err != nil {
		return nil, ErrInvalidObject.Wrap(err)
	}
	if s.Version != CurrentSliceVersion {
		return nil, ErrUnsupportedSlice.WrapMessage("%d", s.Version)
	}
	s.Normalize()
	return &s, nil
}
