// Package branch provides tables of branches: mutable names pointing to commits.
//
// Tables support linearizable compare-and-set updates with TestAndSet.
// Two implementations are provided: an in-memory table and a table persisted
// in a badger database.
package branch
