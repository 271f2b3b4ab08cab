// Package watch dispatches change notifications to registered callbacks.
//
// A Hub tracks values by key. Whenever the value of a key changes, every
// watcher on that key (and every watcher on all keys) receives a Diff against
// the last value it observed.
//
// Dispatch is asynchronous, on a fixed pool of workers. For a given watcher,
// notifications are delivered one at a time, in the order of the changes.
// A failing or panicking callback does not affect other deliveries.
package watch
