// Copyright © 2018 One Concern

// Package storage provides the interface to backend stores of addressable blobs.
//
// This package supports the following backends:
//   - local file system, or any afero file system (e.g. in-memory)
//   - badger key-value store, on disk or in-memory
//
// Backends know nothing about the objects they hold: content addressing
// is layered on top by package cafs.
package storage
