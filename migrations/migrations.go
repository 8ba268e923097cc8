// Package migrations embeds the SQL schema for cmd/migrate's
// golang-migrate/v4 runner.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
