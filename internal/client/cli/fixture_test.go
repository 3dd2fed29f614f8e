package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/client"
	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/client/repositories/blob"
	"github.com/dmitrijs2005/puffpass/internal/client/services"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
)

const testUserID = "5b0e4c57-3f1e-4d8a-9d4b-6a0f6f4dbb01"

var testNow = time.Date(2025, 6, 18, 9, 30, 0, 0, time.UTC)

type identityVar struct {
	mu sync.Mutex
	id string
}

func (v *identityVar) CurrentUserID() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.id, v.id != ""
}

func (v *identityVar) set(id string) {
	v.mu.Lock()
	v.id = id
	v.mu.Unlock()
}

// memUsers is a one-row users table.
type memUsers struct {
	client.Users
	mu sync.Mutex
	p  models.Profile
}

func (m *memUsers) GetUser(context.Context, string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p, nil
}

func (m *memUsers) UpdateUser(_ context.Context, _ string, patch models.ProfilePatch) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if patch.UnitPrice != nil {
		m.p.UnitPrice = *patch.UnitPrice
	}
	if patch.CurrencyCode != nil {
		m.p.CurrencyCode = *patch.CurrencyCode
	}
	if patch.CountryCode != nil {
		m.p.CountryCode = *patch.CountryCode
	}
	return m.p, nil
}

// memEntries is an in-memory entries table, newest first.
type memEntries struct {
	client.Entries
	mu   sync.Mutex
	rows []models.Entry
	err  error
}

func (m *memEntries) ListEntries(_ context.Context, _ string, offset, limit int) ([]models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if offset >= len(m.rows) {
		return []models.Entry{}, nil
	}
	return append([]models.Entry(nil), m.rows[offset:min(offset+limit, len(m.rows))]...), nil
}

func (m *memEntries) InsertEntry(_ context.Context, e models.Entry) (models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Entry{}, m.err
	}
	m.rows = append([]models.Entry{e}, m.rows...)
	return e, nil
}

func (m *memEntries) DeleteEntry(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.rows {
		if e.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return common.E("entries.delete", common.KindNotFound, nil)
}

// fakeAuthService implements services.AuthService against identityVar.
type fakeAuthService struct {
	ids      *identityVar
	profiles *services.ProfileCache

	loginEmail string
	loginPass  string
	loginErr   error

	reg       services.Registration
	regRet    models.Session
	regErr    error
	logoutErr error
	loggedOut bool
}

func (f *fakeAuthService) Register(ctx context.Context, r services.Registration) (models.Session, error) {
	f.reg = r
	if f.regErr != nil {
		return models.Session{}, f.regErr
	}
	if f.regRet.AccessToken != "" {
		f.ids.set(testUserID)
		_ = f.profiles.ForceRefresh(ctx)
	}
	return f.regRet, nil
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (models.Session, error) {
	f.loginEmail, f.loginPass = email, password
	if f.loginErr != nil {
		return models.Session{}, f.loginErr
	}
	f.ids.set(testUserID)
	_ = f.profiles.ForceRefresh(ctx)
	return models.Session{AccessToken: "t", UserID: testUserID}, nil
}

func (f *fakeAuthService) Logout(context.Context) error {
	f.loggedOut = true
	f.ids.set("")
	return f.logoutErr
}

type fixture struct {
	app     *App
	out     *bytes.Buffer
	ids     *identityVar
	users   *memUsers
	remote  *memEntries
	auth    *fakeAuthService
	entries *services.EntryStore
}

// newFixture builds an App reading input. signedIn starts it with a
// session.
func newFixture(t *testing.T, input string, signedIn bool) *fixture {
	t.Helper()
	f := &fixture{
		out: &bytes.Buffer{},
		ids: &identityVar{},
		users: &memUsers{p: models.Profile{
			ID: testUserID, Username: "prateek", Email: "prateek@example.com",
			UnitPrice: decimal.NewFromInt(17), CurrencyCode: "INR", CountryCode: "IN",
		}},
		remote: &memEntries{},
	}
	if signedIn {
		f.ids.set(testUserID)
	}
	now := func() time.Time { return testNow }
	store := blob.NewFileStore(afero.NewMemMapFs(), "cache")
	profiles := services.NewProfileCache(context.Background(), f.users, f.ids, store, services.ProfileCacheOptions{Now: now})
	f.auth = &fakeAuthService{ids: f.ids, profiles: profiles}
	seq := 0
	f.entries = services.NewEntryStore(f.remote, f.ids, services.EntryStoreOptions{
		PageSize: 3,
		Now:      now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("00000000-0000-4000-8000-%012d", seq)
		},
	})

	f.app = NewApp(Deps{
		Auth:     f.auth,
		Profiles: profiles,
		Entries:  f.entries,
		Identity: f.ids,
		In:       strings.NewReader(input),
		Out:      f.out,
		Location: time.UTC,
		Now:      now,
	})
	return f
}

// stubInputs replaces the interactive prompts. Answers are returned in
// order; the password always comes from password.
func stubInputs(t *testing.T, answers []string, password string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	i := 0
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if i >= len(answers) {
			return "", io.EOF
		}
		i++
		return answers[i-1], nil
	}
	getPassword = func(_ *bufio.Reader, _ io.Writer) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

// seed fills the remote table with n entries an hour apart, newest first.
func (f *fixture) seed(n int) {
	f.remote.mu.Lock()
	defer f.remote.mu.Unlock()
	base := len(f.remote.rows)
	for i := base + 1; i <= base+n; i++ {
		f.remote.rows = append(f.remote.rows, models.Entry{
			ID:       fmt.Sprintf("11111111-0000-4000-8000-%012d", i),
			UserID:   testUserID,
			SmokedAt: testNow.Add(-time.Duration(i) * time.Hour),
		})
	}
}

func silenceREPL(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		var b strings.Builder
		for i, v := range a {
			if i > 0 {
				b.WriteString(" ")
			}
			if s, ok := v.(string); ok {
				b.WriteString(s)
			}
		}
		lines = append(lines, b.String())
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}
