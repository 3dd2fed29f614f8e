// Package session owns the signed-in identity. It persists the session in
// the local store so a restart keeps the user signed in, and keeps the
// access token fresh for the REST transport.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/client"
	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/client/repositories/blob"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/dmitrijs2005/puffpass/internal/logging"
	"golang.org/x/sync/singleflight"
)

// StoreKey is the blob key of the persisted session.
const StoreKey = "session"

// Manager implements the identity collaborator on top of client.Auth.
type Manager struct {
	auth  client.Auth
	store blob.Store
	log   logging.Logger
	now   func() time.Time

	// refreshBefore triggers a proactive refresh when the token expires
	// within this margin.
	refreshBefore time.Duration

	mu      sync.RWMutex
	current *models.Session

	refresh singleflight.Group
}

var _ client.TokenSource = (*Manager)(nil)

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(auth client.Auth, store blob.Store, log logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		auth:          auth,
		store:         store,
		log:           log,
		now:           time.Now,
		refreshBefore: 30 * time.Second,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Restore loads the persisted session. A missing or unreadable session
// leaves the manager signed out and is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	data, err := m.store.Get(ctx, StoreKey)
	if err != nil {
		return common.Classify("session.restore", err)
	}
	if data == nil {
		return nil
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil || s.UserID == "" {
		m.log.Warn(ctx, "discarding unreadable session", "error", err)
		_ = m.store.Delete(ctx, StoreKey)
		return nil
	}

	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	m.log.Info(ctx, "session restored", "user_id", s.UserID)
	return nil
}

// CurrentUserID returns the signed-in identity.
func (m *Manager) CurrentUserID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.UserID == "" {
		return "", false
	}
	return m.current.UserID, true
}

// Current returns a copy of the session.
func (m *Manager) Current() (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return models.Session{}, false
	}
	return *m.current, true
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	if err := validateCredentials("auth.sign_in", email, password); err != nil {
		return models.Session{}, err
	}
	s, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}
	s = fromToken(s)
	if err := m.set(ctx, s); err != nil {
		return models.Session{}, err
	}
	m.log.Info(ctx, "signed in", "user_id", s.UserID)
	return s, nil
}

// SignUp registers and, when the backend returns tokens, signs in.
func (m *Manager) SignUp(ctx context.Context, email, password, username string) (models.Session, error) {
	if err := validateCredentials("auth.sign_up", email, password); err != nil {
		return models.Session{}, err
	}
	s, err := m.auth.SignUp(ctx, email, password, username)
	if err != nil {
		return models.Session{}, err
	}
	if s.AccessToken != "" {
		s = fromToken(s)
		if err := m.set(ctx, s); err != nil {
			return models.Session{}, err
		}
	}
	m.log.Info(ctx, "signed up", "user_id", s.UserID, "confirmed", s.AccessToken != "")
	return s, nil
}

// SignOut revokes the session remotely (best-effort) and forgets it
// locally in every case.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	s := m.current
	m.current = nil
	m.mu.Unlock()

	if s != nil && s.AccessToken != "" {
		if err := m.auth.SignOut(ctx, s.AccessToken); err != nil {
			m.log.Warn(ctx, "remote sign-out failed", "error", err)
		}
	}
	if err := m.store.Delete(ctx, StoreKey); err != nil {
		return common.Classify("session.sign_out", err)
	}
	return nil
}

// AccessToken returns a usable access token, refreshing it first when it is
// about to expire. Signed-out callers get "".
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	s, ok := m.Current()
	if !ok || s.AccessToken == "" {
		return "", nil
	}
	if s.ExpiresAt.IsZero() || m.now().Add(m.refreshBefore).Before(s.ExpiresAt) {
		return s.AccessToken, nil
	}
	if s.RefreshToken == "" {
		return s.AccessToken, nil
	}
	return m.RefreshAccessToken(ctx)
}

// RefreshAccessToken exchanges the refresh token for a new session.
// Concurrent callers share a single exchange. A rejected refresh token
// signs the user out.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	v, err, _ := m.refresh.Do("refresh", func() (any, error) {
		s, ok := m.Current()
		if !ok {
			return "", common.E("session.refresh", common.KindUserNotFound, nil)
		}

		fresh, err := m.auth.Refresh(ctx, s.RefreshToken)
		if err != nil {
			if common.KindOf(err) == common.KindUnauthorized {
				m.log.Warn(ctx, "refresh token rejected, signing out", "user_id", s.UserID)
				m.mu.Lock()
				m.current = nil
				m.mu.Unlock()
				_ = m.store.Delete(ctx, StoreKey)
			}
			return "", err
		}
		if fresh.UserID == "" {
			fresh.UserID = s.UserID
		}
		if fresh.Email == "" {
			fresh.Email = s.Email
		}
		if err := m.set(ctx, fromToken(fresh)); err != nil {
			return "", err
		}
		m.log.Debug(ctx, "access token refreshed", "user_id", fresh.UserID)
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) set(ctx context.Context, s models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return common.E("session.save", common.KindUnknown, err)
	}
	if err := m.store.Set(ctx, StoreKey, data); err != nil {
		return common.Classify("session.save", err)
	}
	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	return nil
}

func validateCredentials(op, email, password string) error {
	switch {
	case strings.TrimSpace(email) == "" || !strings.Contains(email, "@"):
		return &common.Error{Op: op, Kind: common.KindValidation, Message: "please enter a valid email address"}
	case len(password) < 6:
		return &common.Error{Op: op, Kind: common.KindValidation, Message: "password must be at least 6 characters"}
	}
	return nil
}
