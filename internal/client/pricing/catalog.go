// Package pricing holds the reference cigarette prices per country and
// resolves a recommended unit price for a country/currency pair.
//
// The catalog is data: the default one is embedded from catalog.json and a
// replacement can be loaded from any JSON document of the same shape.
package pricing

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/puffpass/internal/client/currency"
	"github.com/shopspring/decimal"
)

// Model says whether a region's reference price is derived from the pack
// price or from the single-unit price.
type Model string

const (
	ModelPack Model = "pack"
	ModelUnit Model = "unit"
)

// FallbackPrice is returned when the catalog has no usable entry at all.
var FallbackPrice = decimal.NewFromInt(1)

const fallbackCurrency = "USD"

// Entry is one catalog row.
type Entry struct {
	CountryCode  string          `json:"country_code"`
	CurrencyCode string          `json:"currency_code"`
	PackPrice    decimal.Decimal `json:"pack_price"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitsPerPack int             `json:"units_per_pack"`
	Model        Model           `json:"pricing_model"`
}

// Catalog is an immutable set of entries.
type Catalog struct {
	entries []Entry
}

//go:embed catalog.json
var defaultCatalogJSON string

var defaultCatalog = mustLoad(defaultCatalogJSON)

// Default returns the embedded catalog.
func Default() *Catalog {
	return defaultCatalog
}

func mustLoad(s string) *Catalog {
	c, err := LoadCatalog(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog decodes a JSON array of entries. Codes are normalised to
// upper case; entries with negative prices are rejected.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode price catalog: %w", err)
	}
	for i := range entries {
		e := &entries[i]
		e.CountryCode = strings.ToUpper(strings.TrimSpace(e.CountryCode))
		e.CurrencyCode = strings.ToUpper(strings.TrimSpace(e.CurrencyCode))
		if e.CurrencyCode == "" {
			return nil, fmt.Errorf("price catalog entry %d: missing currency_code", i)
		}
		if e.UnitPrice.IsNegative() || e.PackPrice.IsNegative() {
			return nil, fmt.Errorf("price catalog entry %d (%s): negative price", i, e.CountryCode)
		}
		if e.Model == "" {
			e.Model = ModelPack
		}
		if e.Model != ModelPack && e.Model != ModelUnit {
			return nil, fmt.Errorf("price catalog entry %d (%s): unknown pricing model %q", i, e.CountryCode, e.Model)
		}
	}
	return &Catalog{entries: entries}, nil
}

// Entries returns a copy of the catalog rows.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Resolve finds the entry for the pair: the country's entry whatever its
// currency, else the first entry in the requested currency, else the USD
// entry. When a country has entries in several currencies the one in the
// requested currency is preferred.
func (c *Catalog) Resolve(countryCode, currencyCode string) (Entry, bool) {
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	cur := strings.ToUpper(strings.TrimSpace(currencyCode))

	if country != "" {
		var (
			first Entry
			found bool
		)
		for _, e := range c.entries {
			if e.CountryCode != country {
				continue
			}
			if e.CurrencyCode == cur {
				return e, true
			}
			if !found {
				first, found = e, true
			}
		}
		if found {
			return first, true
		}
	}
	if cur != "" {
		for _, e := range c.entries {
			if e.CurrencyCode == cur {
				return e, true
			}
		}
	}
	for _, e := range c.entries {
		if e.CurrencyCode == fallbackCurrency {
			return e, true
		}
	}
	return Entry{}, false
}

// RecommendedPrice returns the reference price of one cigarette.
func (c *Catalog) RecommendedPrice(countryCode, currencyCode string) decimal.Decimal {
	e, ok := c.Resolve(countryCode, currencyCode)
	if !ok {
		return FallbackPrice
	}
	return e.UnitPrice
}

// PricingModel returns the pricing model of the resolved entry.
func (c *Catalog) PricingModel(countryCode, currencyCode string) Model {
	e, ok := c.Resolve(countryCode, currencyCode)
	if !ok {
		return ModelPack
	}
	return e.Model
}

// Describe explains where the recommended price comes from.
func (c *Catalog) Describe(countryCode, currencyCode string) string {
	e, ok := c.Resolve(countryCode, currencyCode)
	if !ok {
		return "Default price: no regional data available"
	}
	region := e.CountryCode
	if info, ok := currency.Lookup(e.CurrencyCode); ok && info.CountryCode == e.CountryCode {
		region = info.CountryName
	}
	if e.Model == ModelUnit {
		return fmt.Sprintf("Based on the single-cigarette price in %s: %s",
			region, currency.Format(e.UnitPrice, e.CurrencyCode))
	}
	return fmt.Sprintf("Based on a pack of %d at %s in %s",
		e.UnitsPerPack, currency.Format(e.PackPrice, e.CurrencyCode), region)
}
