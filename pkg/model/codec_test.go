package model

import (
	"testing"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeCodec(t *testing.T) {
	h := cafs.Sum([]byte("x"))

	tree := NewTree(
		TreeEntry{Name: "z", Entry: ContentsEntry(h, "<meta>")},
		TreeEntry{Name: "a", Entry: NodeEntry(h)},
	)
	b, err := EncodeTree(tree)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"entries":[{"name":"a","kind":"node","hash":"`+h.String()+`"},{"name":"z","kind":"contents","hash":"`+h.String()+`","metadata":"<meta>"}]}`,
		string(b))
	assert.Contains(t, string(b), "<meta>", "no HTML escaping")

	decoded, err := DecodeTree(b)
	require.NoError(t, err)
	assert.Equal(t, tree, decoded)

	again, err := EncodeTree(decoded)
	require.NoError(t, err)
	assert.Equal(t, b, again)

	k1, err := TreeKey(tree)
	require.NoError(t, err)
	k2, err := TreeKey(NewTree(
		TreeEntry{Name: "a", Entry: NodeEntry(h)},
		TreeEntry{Name: "z", Entry: ContentsEntry(h, "<meta>")},
	))
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "insertion order doesn't matter")
}

func TestEmptyTreeCodec(t *testing.T) {
	b1, err := EncodeTree(Tree{})
	require.NoError(t, err)
	b2, err := EncodeTree(EmptyTree())
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
	assert.Equal(t, `{"entries":[]}`, string(b1))

	decoded, err := DecodeTree(b1)
	require.NoError(t, err)
	assert.True(t, decoded.IsEmpty())
}

func TestDecodeInvalid(t *testing.T) {
	_, err := DecodeTree([]byte(`{"entries":[{"name":"a","kind":"dir","hash":"` + cafs.Sum(nil).String() + `"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidObject))

	_, err = DecodeTree([]byte(`not json`))
	require.Error(t, err)

	_, err = DecodeCommit([]byte(`{"parents":[]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidObject))
}

func TestCommitCodec(t *testing.T) {
	node := cafs.Sum([]byte("tree"))
	info := Info{Date: 1000, Author: "author", Message: "message"}

	root := NewCommit(node, nil, info)
	b, err := EncodeCommit(root)
	require.NoError(t, err)
	assert.JSONEq(t, `{"node":"`+node.String()+`","info":{"date":1000,"author":"author","message":"message"}}`, string(b))

	withEmpty, err := EncodeCommit(Commit{Node: node, Parents: []cafs.Key{}, Info: info})
	require.NoError(t, err)
	assert.Equal(t, b, withEmpty)

	k1, err := CommitKey(root)
	require.NoError(t, err)

	child := NewCommit(node, []cafs.Key{k1}, info)
	b, err = EncodeCommit(child)
	require.NoError(t, err)
	decoded, err := DecodeCommit(b)
	require.NoError(t, err)
	assert.Equal(t, child, decoded)

	k2, err := CommitKey(NewCommit(node, nil, Info{Date: 1001, Author: "author", Message: "message"}))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2, "info is part of the identity")
}
