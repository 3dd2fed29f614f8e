package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/puffpass/internal/client/currency"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/shopspring/decimal"
)

// Profile prints the cached profile, loading it first when it is stale.
func (a *App) Profile(ctx context.Context) error {
	if err := a.profiles.Load(ctx); err != nil {
		a.printErr(common.ActionLoadProfile, err)
	}
	cur := a.profiles.CurrentCurrency()

	a.println(a.styles.title.Render("Profile"))
	a.row("Username", a.profiles.DisplayName())
	a.row("Email", a.profiles.DisplayEmail())
	a.row("Member since", a.profiles.DisplayJoinDate())
	a.row("Price", a.profiles.DisplayPrice()+" per cigarette")
	a.row("Currency", cur.Code+" ("+cur.Name+")")
	a.row("Cache", a.profiles.Status().String())
	return nil
}

func (a *App) row(label, value string) {
	a.println(a.styles.label.Render(label) + value)
}

// Price shows the price and its recommendation, or sets it. The argument
// "recommended" adopts the recommended price.
func (a *App) Price(ctx context.Context, args []string) error {
	if len(args) == 0 {
		code := a.profiles.CurrentCurrency().Code
		a.row("Current", a.profiles.DisplayPrice())
		a.row("Recommended", currency.Format(a.profiles.RecommendedPrice(), code))
		a.println(a.styles.muted.Render(a.profiles.PriceDescription()))
		return nil
	}

	var price decimal.Decimal
	if strings.EqualFold(args[0], "recommended") {
		price = a.profiles.RecommendedPrice()
	} else {
		p, err := decimal.NewFromString(args[0])
		if err != nil {
			a.println(a.styles.err.Render("Not a number: " + args[0]))
			return err
		}
		price = p
	}

	if err := a.profiles.UpdatePrice(ctx, price); err != nil {
		a.printErr(common.ActionUpdatePrice, err)
		return err
	}
	a.println(a.styles.ok.Render("Price set to " + a.profiles.DisplayPrice()))
	return nil
}

// Currency lists the supported currencies or switches to one.
func (a *App) Currency(ctx context.Context, args []string) error {
	if len(args) == 0 {
		current := a.profiles.CurrentCurrency().Code
		for _, info := range currency.Available() {
			mark := "  "
			if info.Code == current {
				mark = "* "
			}
			a.printf("%s%-4s %-4s %s (%s)\n", mark, info.Code, info.Symbol, info.Name, info.CountryName)
		}
		return nil
	}

	if err := a.profiles.UpdateCurrency(ctx, args[0]); err != nil {
		a.printErr(common.ActionUpdateCurrency, err)
		return err
	}
	cur := a.profiles.CurrentCurrency()
	a.println(a.styles.ok.Render("Currency set to " + cur.Code + "; price " + a.profiles.DisplayPrice()))
	return nil
}
