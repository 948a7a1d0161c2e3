// Package migrations embeds the goose SQL migrations for the Postgres sink.
// The collector applies them on startup; tests apply them in TestMain.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
