// Package migrations embeds the goose SQL migrations for the primary
// (game stats) database, mirroring the teacher's internal/db/migrations.FS.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
