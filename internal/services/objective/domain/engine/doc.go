// Package engine runs one command end to end: validate it, rebuild the
// objective's write state, decide, append the resulting event against the
// sequence the decision was based on, and project it.
//
// The append is the serialization point. Two commands decided on the same
// snapshot cannot both land; the loser sees storage.ErrConcurrencyConflict
// and, if ConflictRetries allows, is decided again on fresh state.
package engine
