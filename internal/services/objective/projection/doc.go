// Package projection keeps persisted objective views in step with the event
// journal.
//
// Each event is folded into the stored view with view.Apply and written back
// with its sequence. Stores ignore snapshots older than the one they hold, so
// applying an event twice or out of a rebuild is harmless.
package projection
