// Package view builds the read-side projection of an objective.
//
// Apply folds one event into a View and returns a new snapshot; the previous
// snapshot is never modified, so callers may keep and compare old snapshots.
// The view carries the derived Progress field, which the write-side state does
// not have.
package view
