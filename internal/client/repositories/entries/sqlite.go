package entries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/dbx"
	"github.com/dmitrijs2005/puffpass/internal/timex"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Replace(ctx context.Context, userID string, rows []models.Entry) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear entry snapshot: %w", err)
		}

		query := `INSERT INTO entries (id, user_id, smoked_at, reason, position) VALUES (?, ?, ?, ?, ?)`
		for i, e := range rows {
			_, err := tx.ExecContext(ctx, query, e.ID, userID, e.SmokedAt.UTC().Format(time.RFC3339Nano), e.Reason, i)
			if err != nil {
				return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.Entry, error) {
	query := `SELECT id, user_id, smoked_at, reason FROM entries WHERE user_id = ? ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	result := []models.Entry{}
	for rows.Next() {
		var (
			e        models.Entry
			smokedAt string
			reason   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &smokedAt, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if e.SmokedAt, err = timex.ParseTimestamp(smokedAt); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		if reason.Valid {
			s := reason.String
			e.Reason = &s
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}
