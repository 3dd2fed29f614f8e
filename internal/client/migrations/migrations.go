// Package migrations embeds the goose migrations of the local SQLite
// database and of the self-hosted PostgreSQL backend.
package migrations

import "embed"

// SQLite holds the local database schema under the "sqlite" directory.
//
//go:embed sqlite/*.sql
var SQLite embed.FS

// Postgres holds the remote tables schema under the "postgres" directory.
//
//go:embed postgres/*.sql
var Postgres embed.FS
