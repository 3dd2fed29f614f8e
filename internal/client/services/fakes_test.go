package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/client"
	"github.com/dmitrijs2005/puffpass/internal/client/localdb"
	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/client/repositories/blob"
	"github.com/dmitrijs2005/puffpass/internal/client/repositories/entries"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	userID  = "5b0e4c57-3f1e-4d8a-9d4b-6a0f6f4dbb01"
	otherID = "0c7a3f2e-1111-4b2a-8c3d-2f9e8a7b6c5d"
)

// fixedIdentity is a signed-in user, or nobody when empty.
type fixedIdentity string

func (f fixedIdentity) CurrentUserID() (string, bool) { return string(f), f != "" }

// testClock is a manually advanced clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 18, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---- fake users table ----

type fakeUsers struct {
	client.Users

	mu       sync.Mutex
	profiles map[string]models.Profile
	getCalls int
	patches  []models.ProfilePatch
	inserted []models.NewProfile

	getErr    error
	updateErr error
	insertErr error
	// getGate, when set, blocks GetUser until closed.
	getGate chan struct{}
}

func newFakeUsers(profiles ...models.Profile) *fakeUsers {
	f := &fakeUsers{profiles: map[string]models.Profile{}}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeUsers) GetUser(ctx context.Context, id string) (models.Profile, error) {
	f.mu.Lock()
	f.getCalls++
	gate := f.getGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Profile{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return models.Profile{}, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return models.Profile{}, common.E("users.get", common.KindNotFound, nil)
	}
	return p, nil
}

func (f *fakeUsers) UpdateUser(_ context.Context, id string, patch models.ProfilePatch) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if f.updateErr != nil {
		return models.Profile{}, f.updateErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return models.Profile{}, common.E("users.update", common.KindNotFound, nil)
	}
	if patch.UnitPrice != nil {
		p.UnitPrice = *patch.UnitPrice
	}
	if patch.CurrencyCode != nil {
		p.CurrencyCode = *patch.CurrencyCode
	}
	if patch.CountryCode != nil {
		p.CountryCode = *patch.CountryCode
	}
	f.profiles[id] = p
	return p, nil
}

func (f *fakeUsers) InsertUser(_ context.Context, np models.NewProfile) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, np)
	if f.insertErr != nil {
		return models.Profile{}, f.insertErr
	}
	p := models.Profile{ID: np.ID, Username: np.Username, Email: np.Email, UnitPrice: np.UnitPrice}
	f.profiles[np.ID] = p
	return p, nil
}

func (f *fakeUsers) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func (f *fakeUsers) recordedPatches() []models.ProfilePatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ProfilePatch(nil), f.patches...)
}

// ---- fake entries table ----

type listCall struct{ offset, limit int }

type fakeEntries struct {
	client.Entries

	mu    sync.Mutex
	rows  []models.Entry // most recent first
	lists []listCall

	listErr   error
	insertErr error
	deleteErr error
	listGate  chan struct{}
}

func (f *fakeEntries) ListEntries(ctx context.Context, uid string, offset, limit int) ([]models.Entry, error) {
	f.mu.Lock()
	f.lists = append(f.lists, listCall{offset, limit})
	gate := f.listGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var mine []models.Entry
	for _, e := range f.rows {
		if e.UserID == uid {
			mine = append(mine, e)
		}
	}
	if offset >= len(mine) {
		return []models.Entry{}, nil
	}
	end := min(offset+limit, len(mine))
	return append([]models.Entry(nil), mine[offset:end]...), nil
}

func (f *fakeEntries) InsertEntry(_ context.Context, e models.Entry) (models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return models.Entry{}, f.insertErr
	}
	f.rows = append([]models.Entry{e}, f.rows...)
	return e, nil
}

func (f *fakeEntries) DeleteEntry(_ context.Context, uid, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, e := range f.rows {
		if e.ID == id && e.UserID == uid {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return common.E("entries.delete", common.KindNotFound, nil)
}

func (f *fakeEntries) listCalls() []listCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]listCall(nil), f.lists...)
}

// seedEntries creates n entries one minute apart, newest first.
func seedEntries(uid string, n int, newest time.Time) []models.Entry {
	out := make([]models.Entry, n)
	for i := range out {
		out[i] = models.Entry{
			ID:       fmt.Sprintf("00000000-0000-4000-8000-%012d", i),
			UserID:   uid,
			SmokedAt: newest.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

// ---- local storage ----

func memStore() blob.Store {
	return blob.NewFileStore(afero.NewMemMapFs(), "cache")
}

func snapshotRepo(t *testing.T) entries.Repository {
	t.Helper()
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return entries.NewSQLiteRepository(db)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }
