/*
Package trellis provides a versioned store of trees, with a git-like history.

Contents, trees and commits are content-addressed objects. Branches point to commits,
and may be updated concurrently, merged with three-way merges, watched for changes,
exported as self-contained slices and synchronized between repositories.

The store is implemented by package pkg/core; cmd/trellis is its command line interface.
*/
package trellis
