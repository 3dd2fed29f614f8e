package pgtables

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/common"
)

const entryColumns = `id, user_id, smoked_at, reason`

func scanEntry(row interface{ Scan(...any) error }) (models.Entry, error) {
	var (
		e      models.Entry
		reason sql.NullString
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.SmokedAt, &reason); err != nil {
		return models.Entry{}, err
	}
	e.SmokedAt = e.SmokedAt.UTC()
	if reason.Valid {
		s := reason.String
		e.Reason = &s
	}
	return e, nil
}

func (t *Tables) ListEntries(ctx context.Context, userID string, offset, limit int) ([]models.Entry, error) {
	const op = "entries.list"
	query := `SELECT ` + entryColumns + ` FROM cigarette_entries
		WHERE user_id = $1
		ORDER BY smoked_at DESC, id DESC
		OFFSET $2 LIMIT $3`

	rows, err := t.db.QueryContext(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	result := make([]models.Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return result, nil
}

// InsertEntry stores e. A zero SmokedAt lets the column default assign the
// server time.
func (t *Tables) InsertEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	query := `INSERT INTO cigarette_entries (id, user_id, smoked_at, reason)
		VALUES ($1, $2, COALESCE($3::timestamptz, now()), $4)
		RETURNING ` + entryColumns

	var smokedAt any
	if !e.SmokedAt.IsZero() {
		smokedAt = e.SmokedAt.UTC()
	}
	got, err := scanEntry(t.db.QueryRowContext(ctx, query, e.ID, e.UserID, smokedAt, nullable(e.Reason)))
	if err != nil {
		return models.Entry{}, mapError("entries.insert", err)
	}
	return got, nil
}

func (t *Tables) DeleteEntry(ctx context.Context, userID, id string) error {
	const op = "entries.delete"
	res, err := t.db.ExecContext(ctx, `DELETE FROM cigarette_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return &common.Error{Op: op, Kind: common.KindNotFound, Message: "entry not found"}
	}
	return nil
}
