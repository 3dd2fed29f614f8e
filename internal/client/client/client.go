package client

import (
	"context"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
)

// Users is the users table.
type Users interface {
	// GetUser selects the row with the given id. A missing row yields
	// common.ErrNotFound.
	GetUser(ctx context.Context, id string) (models.Profile, error)

	// UpdateUser writes the non-nil fields of patch and returns the stored
	// row.
	UpdateUser(ctx context.Context, id string, patch models.ProfilePatch) (models.Profile, error)

	// InsertUser creates the row for a newly registered user.
	InsertUser(ctx context.Context, p models.NewProfile) (models.Profile, error)
}

// Entries is the cigarette_entries table.
type Entries interface {
	// ListEntries returns up to limit rows of userID starting at offset,
	// newest first.
	ListEntries(ctx context.Context, userID string, offset, limit int) ([]models.Entry, error)

	// InsertEntry stores e and returns the row as the backend stored it.
	InsertEntry(ctx context.Context, e models.Entry) (models.Entry, error)

	// DeleteEntry removes the entry id owned by userID. Deleting a row that
	// does not exist yields common.ErrNotFound.
	DeleteEntry(ctx context.Context, userID, id string) error
}

// RemoteTable is the full table contract the stores consume.
type RemoteTable interface {
	Users
	Entries
}

// Auth is the identity provider.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (models.Session, error)

	// SignUp registers a new account. When the backend requires e-mail
	// confirmation the returned session carries only UserID and Email.
	SignUp(ctx context.Context, email, password, username string) (models.Session, error)

	Refresh(ctx context.Context, refreshToken string) (models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// TokenSource supplies bearer tokens for table requests.
type TokenSource interface {
	// AccessToken returns the current access token, or "" when the caller
	// is anonymous.
	AccessToken(ctx context.Context) (string, error)

	// RefreshAccessToken obtains a new access token after the backend
	// rejected the current one.
	RefreshAccessToken(ctx context.Context) (string, error)
}
