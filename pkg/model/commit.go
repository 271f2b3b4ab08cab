package model

import "github.com/oneconcern/trellis/pkg/cafs"

// Commit records a tree with its history
type Commit struct {
	Node    cafs.Key   `json:"node" yaml:"node"`
	Parents []cafs.Key `json:"parents,omitempty" yaml:"parents,omitempty"`
	Info    Info       `json:"info" yaml:"info"`
}

// NewCommit builds a commit
func NewCommit(node cafs.Key, parents []cafs.Key, info Info) Commit {
	var ps []cafs.Key
	if len(parents) > 0 {
		ps = make([]cafs.Key, len(parents))
		copy(ps, parents)
	}
	return Commit{Node: node, Parents: ps, Info: info}
}

// IsRoot tells if this commit has no parents
func (c Commit) IsRoot() bool {
	return len(c.Parents) == 0
}

// HasParent tells if some commit is a direct parent of this one
func (c Commit) HasParent(k cafs.Key) bool {
	for _, p := range c.Parents {
		if p == k {
			return true
		}
	}
	return false
}
