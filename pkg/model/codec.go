package model

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/trellis/pkg/cafs"
)

// canonical JSON encoding: fields in declaration order, sorted map keys, no HTML escaping.
// Hashes of objects are computed over this encoding.
var canonical = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Marshal encodes any value with the canonical encoding
func Marshal(v interface{}) ([]byte, error) {
	return canonical.Marshal(v)
}

// Unmarshal decodes any value encoded with the canonical encoding
func Unmarshal(data []byte, v interface{}) error {
	return canonical.Unmarshal(data, v)
}

// EncodeTree renders the canonical encoding of a tree
func EncodeTree(t Tree) ([]byte, error) {
	if t.Entries == nil {
		t.Entries = []TreeEntry{}
	}
	return canonical.Marshal(t)
}

// DecodeTree parses and validates a tree
func DecodeTree(data []byte) (Tree, error) {
	var t Tree
	if err := canonical.Unmarshal(data, &t); err != nil {
		return Tree{}, ErrInvalidObject.Wrap(err)
	}
	if err := t.Validate(); err != nil {
		return Tree{}, err
	}
	if t.Entries == nil {
		t.Entries = []TreeEntry{}
	}
	return t, nil
}

// EncodeCommit renders the canonical encoding of a commit
func EncodeCommit(c Commit) ([]byte, error) {
	if len(c.Parents) == 0 {
		c.Parents = nil
	}
	return canonical.Marshal(c)
}

// DecodeCommit parses a commit
func DecodeCommit(data []byte) (Commit, error) {
	var c Commit
	if err := canonical.Unmarshal(data, &c); err != nil {
		return Commit{}, ErrInvalidObject.Wrap(err)
	}
	if c.Node.IsZero() {
		return Commit{}, ErrInvalidObject.WrapMessage("commit without a tree")
	}
	return c, nil
}

// TreeKey computes the key of a tree
func TreeKey(t Tree) (cafs.Key, error) {
	b, err := EncodeTree(t)
	if err != nil {
		return cafs.Key{}, err
	}
	return cafs.Sum(b), nil
}

// CommitKey computes the key of a commit
func CommitKey(c Commit) (cafs.Key, error) {
	b, err := EncodeCommit(c)
	if err != nil {
		return cafs.Key{}, err
	}
	return cafs.Sum(b), nil
}
