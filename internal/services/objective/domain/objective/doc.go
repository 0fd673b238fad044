// Package objective is the Objective aggregate: an objective owned by a user or
// an org unit, plus its embedded key results.
//
// Decide validates a command against the replayed State and returns at most one
// event. Fold rebuilds State from the journal. State stays minimal on purpose:
// it holds only what Decide needs, while read-side shapes live in the view
// package.
package objective
