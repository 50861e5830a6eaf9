// Package migrations embeds the SQL schema applied at API startup.
package migrations

import "embed"

// Files holds every .sql file; they run in name order (001, 002, ...).
//
//go:embed *.sql
var Files embed.FS
