package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/puffpass/internal/client/client"
	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/dmitrijs2005/puffpass/internal/logging"
	"github.com/shopspring/decimal"
)

// Registration holds the sign-up form. A zero UnitPrice selects the
// recommended price for the detected currency.
type Registration struct {
	Email     string
	Password  string
	Username  string
	UnitPrice decimal.Decimal
}

// AuthService defines the account operations of the CLI.
//
// Contract:
//   - Register: create the account and, once signed in, its users row.
//   - Login: sign in and make sure the users row exists.
//   - Logout: forget the session and every cached piece of user data.
type AuthService interface {
	Register(ctx context.Context, r Registration) (models.Session, error)
	Login(ctx context.Context, email, password string) (models.Session, error)
	Logout(ctx context.Context) error
}

type authService struct {
	sessions Sessions
	users    client.Users
	profiles *ProfileCache
	entries  *EntryStore
	log      logging.Logger
}

// NewAuthService constructs an AuthService over the session collaborator
// and the two stores it resets on account changes.
func NewAuthService(sessions Sessions, users client.Users, profiles *ProfileCache, entries *EntryStore, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{
		sessions: sessions,
		users:    users,
		profiles: profiles,
		entries:  entries,
		log:      log.With("component", "auth"),
	}
}

// Register signs up. When the backend requires email confirmation no
// session is issued; the users row is then created on first login.
func (a *authService) Register(ctx context.Context, r Registration) (models.Session, error) {
	const op = "auth.register"
	if r.UnitPrice.IsNegative() {
		return models.Session{}, &common.Error{Op: op, Kind: common.KindValidation, Message: "price cannot be negative"}
	}
	username := strings.TrimSpace(r.Username)
	if username == "" {
		username = usernameFromEmail(r.Email)
	}

	s, err := a.sessions.SignUp(ctx, r.Email, r.Password, username)
	if err != nil {
		return models.Session{}, err
	}
	a.resetLocal(ctx)
	if s.AccessToken == "" {
		a.log.Info(ctx, "registration awaits confirmation", "user_id", s.UserID)
		return s, nil
	}
	if s.Email == "" {
		s.Email = r.Email
	}
	return s, a.ensureProfile(ctx, s, username, r.UnitPrice)
}

// Login signs in. A missing users row is created with the recommended
// price; other profile failures are left for the next load to report.
func (a *authService) Login(ctx context.Context, email, password string) (models.Session, error) {
	s, err := a.sessions.SignIn(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}
	a.resetLocal(ctx)
	if s.Email == "" {
		s.Email = email
	}
	if err := a.ensureProfile(ctx, s, usernameFromEmail(s.Email), decimal.Zero); err != nil {
		if errors.Is(err, common.ErrRemoteRejected) {
			return s, err
		}
		a.log.Warn(ctx, "profile not loaded after login", "user_id", s.UserID, "error", err)
	}
	return s, nil
}

func (a *authService) ensureProfile(ctx context.Context, s models.Session, username string, price decimal.Decimal) error {
	const op = "auth.ensure_profile"
	err := a.profiles.ForceRefresh(ctx)
	if err == nil || !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if !price.IsPositive() {
		price = a.profiles.RecommendedPrice()
	}
	if _, err := a.users.InsertUser(ctx, models.NewProfile{
		ID:        s.UserID,
		Username:  username,
		Email:     s.Email,
		UnitPrice: price,
	}); err != nil {
		return common.Classify(op, err)
	}
	a.log.Info(ctx, "created user profile", "user_id", s.UserID, "price", price.String())
	return a.profiles.ForceRefresh(ctx)
}

// Logout clears entries, profile and session. Every step runs even when an
// earlier one fails.
func (a *authService) Logout(ctx context.Context) error {
	errEntries := a.entries.Reset(ctx)
	errProfile := a.profiles.Clear(ctx)
	errSession := a.sessions.SignOut(ctx)
	if err := errors.Join(errEntries, errProfile, errSession); err != nil {
		a.log.Warn(ctx, "logout incomplete", "error", err)
		return err
	}
	a.log.Info(ctx, "logged out")
	return nil
}

func (a *authService) resetLocal(ctx context.Context) {
	if err := a.entries.Reset(ctx); err != nil {
		a.log.Warn(ctx, "failed to reset entries", "error", err)
	}
	if err := a.profiles.Clear(ctx); err != nil {
		a.log.Warn(ctx, "failed to clear profile", "error", err)
	}
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}
