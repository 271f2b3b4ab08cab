// Package merge provides three-way merge functions and combinators.
//
// A merge function reconciles two values (ours and theirs) given an optional
// common ancestor (old). The ancestor is passed lazily, since computing it may
// be expensive (e.g. a merge base in a commit history).
//
// Merge functions fail with a *Conflict.
package merge
