// Package models defines client-side data models used by PuffPass.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the user's record in the users table.
//
// UnitPrice is the price of a single cigarette in CurrencyCode and is the
// only figure used for spend calculations. Zero means "not set yet".
// Empty CurrencyCode / CountryCode mean the user has not chosen them.
type Profile struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	UnitPrice    decimal.Decimal `json:"price_per_cigarette"`
	CurrencyCode string          `json:"currency_code,omitempty"`
	CountryCode  string          `json:"country_code,omitempty"`
	JoinedAt     *time.Time      `json:"joined_at,omitempty"`
}

// HasPrice reports whether the user has a price set.
func (p Profile) HasPrice() bool {
	return p.UnitPrice.IsPositive()
}

// Equal compares profiles field by field. JoinedAt values are compared at
// second precision.
func (p Profile) Equal(o Profile) bool {
	if p.ID != o.ID || p.Username != o.Username || p.Email != o.Email ||
		!p.UnitPrice.Equal(o.UnitPrice) || p.CurrencyCode != o.CurrencyCode ||
		p.CountryCode != o.CountryCode {
		return false
	}
	switch {
	case p.JoinedAt == nil && o.JoinedAt == nil:
		return true
	case p.JoinedAt == nil || o.JoinedAt == nil:
		return false
	default:
		return p.JoinedAt.Truncate(time.Second).Equal(o.JoinedAt.Truncate(time.Second))
	}
}

// ProfilePatch lists the user-editable columns of a profile. Nil fields are
// not written.
type ProfilePatch struct {
	UnitPrice    *decimal.Decimal
	CurrencyCode *string
	CountryCode  *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.UnitPrice == nil && p.CurrencyCode == nil && p.CountryCode == nil
}

// NewProfile describes the row inserted on registration.
type NewProfile struct {
	ID        string
	Username  string
	Email     string
	UnitPrice decimal.Decimal
}
