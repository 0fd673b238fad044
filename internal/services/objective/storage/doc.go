// Package storage defines the persistence contracts of the objectives service:
// an append-only event journal that is the source of truth, and a view store
// holding the projected objective snapshots that queries read.
package storage
