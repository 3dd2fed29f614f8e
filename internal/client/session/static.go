package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/common"
)

// Static is a fixed identity for backends without an auth API, such as a
// self-hosted PostgreSQL database. The identity comes from configuration.
type Static struct {
	mu     sync.RWMutex
	userID string
}

func NewStatic(userID string) *Static {
	return &Static{userID: userID}
}

func (s *Static) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

func (s *Static) SignIn(context.Context, string, string) (models.Session, error) {
	return models.Session{}, unsupported("auth.sign_in")
}

func (s *Static) SignUp(context.Context, string, string, string) (models.Session, error) {
	return models.Session{}, unsupported("auth.sign_up")
}

// SignOut forgets the identity for the rest of the process.
func (s *Static) SignOut(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	return nil
}

func unsupported(op string) error {
	return &common.Error{Op: op, Kind: common.KindValidation, Message: "not available with this backend; set user_id in the configuration"}
}
