package entries

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE entries (
  id        TEXT PRIMARY KEY,
  user_id   TEXT NOT NULL,
  smoked_at TEXT NOT NULL,
  reason    TEXT,
  position  INTEGER NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func entry(id string, at time.Time, reason string) models.Entry {
	e := models.Entry{ID: id, UserID: "u1", SmokedAt: at}
	if reason != "" {
		e.Reason = &reason
	}
	return e
}

func TestReplaceAndList_KeepsOrder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	base := time.Date(2025, 7, 1, 12, 0, 0, 123_000_000, time.UTC)
	rows := []models.Entry{
		entry("c", base, "Stress"),
		entry("a", base.Add(-time.Hour), ""),
		entry("b", base.Add(-2*time.Hour), "Habit"),
	}
	require.NoError(t, r.Replace(ctx, "u1", rows))

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.True(t, got[0].SmokedAt.Equal(base))
	assert.Equal(t, "Stress", got[0].ReasonText())
	assert.Nil(t, got[1].Reason)
}

func TestReplace_OverwritesPreviousSnapshot(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Replace(ctx, "u1", []models.Entry{entry("a", now, ""), entry("b", now, "")}))
	require.NoError(t, r.Replace(ctx, "u1", []models.Entry{entry("c", now, "")}))

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}

func TestReplace_RollsBackOnError(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Replace(ctx, "u1", []models.Entry{entry("a", now, "")}))

	err := r.Replace(ctx, "u1", []models.Entry{entry("x", now, ""), entry("x", now, "")})
	require.Error(t, err)

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestList_Empty_IsNotNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	got, err := r.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_IsScopedByUser(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Replace(ctx, "u1", []models.Entry{entry("a", now, "")}))
	require.NoError(t, r.Replace(ctx, "u2", []models.Entry{entry("b", now, "")}))

	got, err := r.List(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestClear_RemovesAll(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Replace(ctx, "u1", []models.Entry{entry("a", time.Now(), "")}))
	require.NoError(t, r.Clear(ctx))

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestList_BadTimestamp(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`INSERT INTO entries (id, user_id, smoked_at, position) VALUES ('a', 'u1', 'yesterday', 0)`)
	require.NoError(t, err)

	_, err = NewSQLiteRepository(db).List(context.Background(), "u1")
	require.ErrorContains(t, err, "entry a")
}

func TestErrorsWrapped_WhenDBClosed(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	require.Error(t, r.Replace(ctx, "u1", nil))
	_, err := r.List(ctx, "u1")
	require.ErrorContains(t, err, "failed to select entries")
	require.ErrorContains(t, r.Clear(ctx), "failed to clear entries")
}
