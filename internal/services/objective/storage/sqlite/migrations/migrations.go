// Package migrations embeds the SQLite schema for the objective store.
package migrations

import "embed"

// FS holds the events and views migration roots.
//
//go:embed events/*.sql views/*.sql
var FS embed.FS

// Roots lists migration directories in the order they are applied.
var Roots = []string{"events", "views"}
