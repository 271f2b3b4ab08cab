// Package model describes the base objects manipulated by trellis.
//
// The object model follows git's, with three kinds of immutable objects
// addressed by the hash of their canonical encoding:
//
//	Contents:
//	  Opaque user bytes.
//
//	Trees:
//	  A mapping from names to entries. An entry points either to some contents
//	  (with metadata) or to another tree (a node). Entries are kept sorted by name.
//
//	Commits:
//	  A tree, an ordered list of parent commits and some info (date, author, message).
//
// Branches are mutable names pointing to commits: they are not part of the object model.
package model
