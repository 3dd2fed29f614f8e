// Package entries keeps a local snapshot of the first page of the user's
// entries, so the list can be shown before the first remote load finishes.
// The snapshot is a read-only cache; the remote table stays the source of
// truth.
package entries

import (
	"context"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
)

// Repository stores ordered entry snapshots per user.
type Repository interface {
	// Replace atomically swaps the user's snapshot for rows, keeping their
	// order.
	Replace(ctx context.Context, userID string, rows []models.Entry) error

	// List returns the user's snapshot in stored order. No snapshot yields
	// an empty slice.
	List(ctx context.Context, userID string) ([]models.Entry, error)

	// Clear removes all snapshots.
	Clear(ctx context.Context) error
}
