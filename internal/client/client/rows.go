package client

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/timex"
	"github.com/shopspring/decimal"
)

// userRow is a users row on the wire. The backend may send the numeric
// price either as a number or as a string; decimal.Decimal accepts both.
type userRow struct {
	ID                string          `json:"id"`
	Username          string          `json:"username"`
	Email             string          `json:"email"`
	PricePerCigarette decimal.Decimal `json:"price_per_cigarette"`
	CurrencyCode      *string         `json:"currency_code"`
	CountryCode       *string         `json:"country_code"`
	JoinedAt          timex.Timestamp `json:"joined_at"`
}

func (r userRow) profile() models.Profile {
	p := models.Profile{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		UnitPrice: r.PricePerCigarette,
	}
	if r.CurrencyCode != nil {
		p.CurrencyCode = *r.CurrencyCode
	}
	if r.CountryCode != nil {
		p.CountryCode = *r.CountryCode
	}
	if !r.JoinedAt.IsZero() {
		t := r.JoinedAt.Time
		p.JoinedAt = &t
	}
	return p
}

// numeric renders d as a JSON number. decimal.Decimal marshals to a quoted
// string by default, which the price column must never receive.
func numeric(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// userPatch is the PATCH body for users. Nil fields are omitted.
type userPatch struct {
	PricePerCigarette *json.Number `json:"price_per_cigarette,omitempty"`
	CurrencyCode      *string      `json:"currency_code,omitempty"`
	CountryCode       *string      `json:"country_code,omitempty"`
}

func newUserPatch(p models.ProfilePatch) userPatch {
	out := userPatch{CurrencyCode: p.CurrencyCode, CountryCode: p.CountryCode}
	if p.UnitPrice != nil {
		n := numeric(*p.UnitPrice)
		out.PricePerCigarette = &n
	}
	return out
}

type newUserRow struct {
	ID                string      `json:"id"`
	Username          string      `json:"username"`
	Email             string      `json:"email"`
	PricePerCigarette json.Number `json:"price_per_cigarette"`
}

type entryRow struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	SmokedAt timex.Timestamp `json:"smoked_at"`
	Reason   *string         `json:"reason"`
}

func newEntryRow(e models.Entry) entryRow {
	return entryRow{ID: e.ID, UserID: e.UserID, SmokedAt: timex.Timestamp{Time: e.SmokedAt}, Reason: e.Reason}
}

func (r entryRow) entry() models.Entry {
	return models.Entry{ID: r.ID, UserID: r.UserID, SmokedAt: r.SmokedAt.Time, Reason: r.Reason}
}

// sessionResponse is the GoTrue token/signup response. Signup without
// auto-confirmation returns the bare user object instead, hence the
// top-level ID and Email.
type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
}

func (r sessionResponse) session(now time.Time) models.Session {
	s := models.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		UserID:       r.ID,
		Email:        r.Email,
	}
	if r.User != nil {
		s.UserID = r.User.ID
		s.Email = r.User.Email
	}
	switch {
	case r.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(r.ExpiresAt, 0).UTC()
	case r.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second).UTC()
	}
	return s
}
