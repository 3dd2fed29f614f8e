package session

import (
	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
)

// fromToken fills UserID and ExpiresAt from the access token's claims when
// the auth response did not carry them. The signature is not checked; the
// token is only ever verified by the backend.
func fromToken(s models.Session) models.Session {
	if s.AccessToken == "" || (s.UserID != "" && !s.ExpiresAt.IsZero()) {
		return s
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, &claims); err != nil {
		return s
	}
	if s.UserID == "" {
		s.UserID = claims.Subject
	}
	if s.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return s
}
