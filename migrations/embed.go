// Package migrations embeds the Postgres SQL migrations so they can be used
// by the goose programmatic API in tests and server bootstrap.
//
// File versions mirror the SQLite steps in internal/schema: the depicts table
// is introduced in version 5 and indexed in version 6.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
// Pass this to goose.NewProvider instead of relying on a filesystem path at runtime.
//
//go:embed *.sql
var FS embed.FS
