// Package migrations embeds the SQL schema of the PostgreSQL storage backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
