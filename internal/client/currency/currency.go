// Package currency resolves the user's currency from the device locale and
// formats amounts for display.
//
// Detection never guesses: a locale without an explicit region, a region
// without a currency, or a currency missing from the static table all yield
// "not detected", and the caller falls back to DefaultCurrency.
package currency

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Info describes a supported currency.
type Info struct {
	Code        string
	Symbol      string
	Name        string
	CountryCode string
	CountryName string
	// Locale is the BCP 47 tag used for digit grouping.
	Locale string
}

// table is ordered for display; codes are ISO 4217.
var table = []Info{
	{Code: "USD", Symbol: "$", Name: "US Dollar", CountryCode: "US", CountryName: "United States", Locale: "en-US"},
	{Code: "EUR", Symbol: "€", Name: "Euro", CountryCode: "DE", CountryName: "Germany", Locale: "de-DE"},
	{Code: "GBP", Symbol: "£", Name: "British Pound", CountryCode: "GB", CountryName: "United Kingdom", Locale: "en-GB"},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", CountryCode: "IN", CountryName: "India", Locale: "en-IN"},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen", CountryCode: "JP", CountryName: "Japan", Locale: "ja-JP"},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", CountryCode: "CN", CountryName: "China", Locale: "zh-CN"},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar", CountryCode: "CA", CountryName: "Canada", Locale: "en-CA"},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", CountryCode: "AU", CountryName: "Australia", Locale: "en-AU"},
	{Code: "CHF", Symbol: "CHF", Name: "Swiss Franc", CountryCode: "CH", CountryName: "Switzerland", Locale: "de-CH"},
	{Code: "SEK", Symbol: "kr", Name: "Swedish Krona", CountryCode: "SE", CountryName: "Sweden", Locale: "sv-SE"},
	{Code: "BRL", Symbol: "R$", Name: "Brazilian Real", CountryCode: "BR", CountryName: "Brazil", Locale: "pt-BR"},
	{Code: "MXN", Symbol: "MX$", Name: "Mexican Peso", CountryCode: "MX", CountryName: "Mexico", Locale: "es-MX"},
	{Code: "ZAR", Symbol: "R", Name: "South African Rand", CountryCode: "ZA", CountryName: "South Africa", Locale: "en-ZA"},
	{Code: "SGD", Symbol: "S$", Name: "Singapore Dollar", CountryCode: "SG", CountryName: "Singapore", Locale: "en-SG"},
	{Code: "RUB", Symbol: "₽", Name: "Russian Ruble", CountryCode: "RU", CountryName: "Russia", Locale: "ru-RU"},
}

var byCode = func() map[string]Info {
	m := make(map[string]Info, len(table))
	for _, info := range table {
		m[info.Code] = info
	}
	return m
}()

// DefaultCurrency is used only when detection fails.
func DefaultCurrency() Info {
	return byCode["USD"]
}

// Available lists the supported currencies in display order.
func Available() []Info {
	out := make([]Info, len(table))
	copy(out, table)
	return out
}

// Lookup finds a currency by ISO code, case-insensitively.
func Lookup(code string) (Info, bool) {
	info, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return info, ok
}

// DetectFromLocale maps a locale such as "en_US.UTF-8" or "hi-IN" to the
// currency used in its region. The returned Info carries the locale's own
// region as CountryCode.
func DetectFromLocale(locale string) (Info, bool) {
	tag, ok := parseLocale(locale)
	if !ok {
		return Info{}, false
	}

	region, conf := tag.Region()
	if conf != language.Exact {
		return Info{}, false
	}

	unit, ok := currency.FromRegion(region)
	if !ok {
		return Info{}, false
	}

	info, ok := Lookup(unit.String())
	if !ok {
		return Info{}, false
	}

	info.CountryCode = region.String()
	if name := display.English.Regions().Name(region); name != "" {
		info.CountryName = name
	}
	info.Locale = tag.String()
	return info, true
}

// LocaleFromEnv returns the first non-empty of LC_ALL, LC_MONETARY and LANG.
func LocaleFromEnv() string {
	for _, key := range []string{"LC_ALL", "LC_MONETARY", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func parseLocale(locale string) (language.Tag, bool) {
	s := strings.TrimSpace(locale)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return language.Tag{}, false
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return language.Tag{}, false
	}
	return tag, true
}

// Format renders amount with the currency's symbol and two fractional
// digits. An empty code means the default currency; an unknown code is
// used verbatim as the symbol.
func Format(amount decimal.Decimal, code string) string {
	info, ok := DefaultCurrency(), true
	if code != "" {
		info, ok = Lookup(code)
	}
	if !ok {
		return strings.ToUpper(code) + " " + amount.StringFixed(2)
	}

	tag, err := language.Parse(info.Locale)
	if info.Locale == "" || err != nil {
		return info.Symbol + amount.StringFixed(2)
	}

	p := message.NewPrinter(tag)
	return info.Symbol + p.Sprintf("%v", number.Decimal(amount.Round(2).InexactFloat64(), number.Scale(2)))
}
