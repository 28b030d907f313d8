// Package migrations embeds the journal's SQL migration files so the schema
// ships inside the binary.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
