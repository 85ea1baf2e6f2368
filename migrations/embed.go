// Package migrations embeds the sqlite schema migrations
package migrations

import "embed"

// FS holds the numbered migration files
//
//go:embed *.sql
var FS embed.FS
