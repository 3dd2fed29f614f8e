package pgtables

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/common"
)

const userColumns = `id, username, email, price_per_cigarette, currency_code, country_code, joined_at`

func scanUser(row interface{ Scan(...any) error }) (models.Profile, error) {
	var (
		p        models.Profile
		currency sql.NullString
		country  sql.NullString
		joined   sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.UnitPrice, &currency, &country, &joined); err != nil {
		return models.Profile{}, err
	}
	p.CurrencyCode = currency.String
	p.CountryCode = country.String
	if joined.Valid {
		t := joined.Time.UTC()
		p.JoinedAt = &t
	}
	return p, nil
}

func (t *Tables) GetUser(ctx context.Context, id string) (models.Profile, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	p, err := scanUser(t.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.Profile{}, mapError("users.get", err)
	}
	return p, nil
}

// UpdateUser writes only the non-nil patch fields; NULL parameters keep the
// stored value.
func (t *Tables) UpdateUser(ctx context.Context, id string, patch models.ProfilePatch) (models.Profile, error) {
	if patch.Empty() {
		return t.GetUser(ctx, id)
	}

	query := `UPDATE users SET
		price_per_cigarette = COALESCE($2::numeric, price_per_cigarette),
		currency_code = COALESCE($3, currency_code),
		country_code = COALESCE($4, country_code)
		WHERE id = $1
		RETURNING ` + userColumns

	var price any
	if patch.UnitPrice != nil {
		price = *patch.UnitPrice
	}
	p, err := scanUser(t.db.QueryRowContext(ctx, query, id, price, nullable(patch.CurrencyCode), nullable(patch.CountryCode)))
	if err != nil {
		return models.Profile{}, mapError("users.update", err)
	}
	return p, nil
}

func (t *Tables) InsertUser(ctx context.Context, np models.NewProfile) (models.Profile, error) {
	price := np.UnitPrice
	if price.IsNegative() {
		return models.Profile{}, &common.Error{Op: "users.insert", Kind: common.KindValidation, Message: "price must not be negative"}
	}

	query := `INSERT INTO users (id, username, email, price_per_cigarette)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	p, err := scanUser(t.db.QueryRowContext(ctx, query, np.ID, np.Username, np.Email, price))
	if err != nil {
		return models.Profile{}, mapError("users.insert", err)
	}
	return p, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
