// Package cafs provides a content-addressable store for immutable byte objects.
//
// All content is indexed according to a deduplication scheme: objects are
// identified by the blake2b-256 hash of their bytes, so that identical bytes
// always yield the same key and are stored only once.
//
// A cafs store is a namespace (the key prefix) over a backend storage.Store.
// Several namespaces may share the same backend.
//
// Decoded objects are immutable: a bounded LRU cache keeps recently used
// objects in memory.
package cafs
