// Package migrations holds the schema shared by every SQL driver. The SQL is
// restricted to the common subset of SQLite and PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
