// Package event defines the journal envelope and the event-type registry used by
// the objective write path.
//
// Events are immutable facts emitted by accepted decisions. The registry checks
// that every event carries an aggregate id, a registered type, and a payload
// that decodes for that type before the journal assigns sequence and hashes.
package event
