// Package migrations embeds the versioned schema files for the
// SQLite store.
package migrations

import "embed"

// FS holds every .up.sql migration, embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
