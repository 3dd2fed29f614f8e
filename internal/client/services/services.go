// Package services contains the application services of the PuffPass
// client: the profile cache, the entry store and the auth flow that ties
// them to a session.
//
// Every service publishes its state behind a read lock and hands out copies.
// Remote calls of one service never overlap: they queue on a single slot,
// and a generation counter discards completions that belong to a state the
// user already left (for example a load that finishes after sign-out).
package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/common"
)

// Identity supplies the signed-in user.
type Identity interface {
	CurrentUserID() (string, bool)
}

// Sessions is the identity collaborator used by AuthService.
type Sessions interface {
	Identity
	SignIn(ctx context.Context, email, password string) (models.Session, error)
	SignUp(ctx context.Context, email, password, username string) (models.Session, error)
	SignOut(ctx context.Context) error
}

// slot admits one remote call at a time.
type slot chan struct{}

func newSlot() slot { return make(slot, 1) }

func (s slot) acquire(ctx context.Context, op string) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return common.Classify(op, ctx.Err())
	}
}

func (s slot) release() { <-s }

func currentUser(id Identity, op string) (string, error) {
	if id == nil {
		return "", common.E(op, common.KindUserNotFound, nil)
	}
	uid, ok := id.CurrentUserID()
	if !ok || uid == "" {
		return "", common.E(op, common.KindUserNotFound, nil)
	}
	return uid, nil
}

func elapsed(start time.Time, now func() time.Time) time.Duration {
	return now().Sub(start).Round(time.Millisecond)
}
