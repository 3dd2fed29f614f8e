// Package common contains shared constants, the error taxonomy and small
// helpers used across PuffPass client components.
package common

// Header names understood by the hosted data service.
const (
	APIKeyHeaderName        = "apikey"
	AuthorizationHeaderName = "Authorization"
	PreferHeaderName        = "Prefer"
)

// Table names of the remote data service.
const (
	UsersTable   = "users"
	EntriesTable = "cigarette_entries"
)
