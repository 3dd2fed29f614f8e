package cli

import (
	"context"

	"github.com/dmitrijs2005/puffpass/internal/client/services"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/shopspring/decimal"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for the account details and creates the account.
//
// An empty price selects the recommended price for the detected currency.
// When the backend requires email confirmation the user is told to confirm
// and log in; otherwise the new session is activated right away. The
// password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	username, err := a.prompt("Choose a username (empty = from email)")
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	priceText, err := a.prompt("Price per cigarette (empty = recommended)")
	if err != nil {
		return err
	}
	var price decimal.Decimal
	if priceText != "" {
		if price, err = decimal.NewFromString(priceText); err != nil {
			a.println(a.styles.err.Render("Not a number: " + priceText))
			return err
		}
	}

	s, err := a.auth.Register(ctx, services.Registration{
		Email:     email,
		Password:  string(password),
		Username:  username,
		UnitPrice: price,
	})
	if err != nil {
		a.printErr(common.ActionSignUp, err)
		return err
	}
	if s.AccessToken == "" {
		a.println(a.styles.ok.Render("Account created. Confirm your email, then log in."))
		return nil
	}

	a.println(a.styles.ok.Render("Welcome, " + a.profiles.DisplayName() + "!"))
	a.activate(ctx)
	return nil
}

// Login prompts for credentials, signs in and loads the user's data.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.auth.Login(ctx, email, string(password)); err != nil {
		a.printErr(common.ActionSignIn, err)
		return err
	}

	a.println(a.styles.ok.Render("Logged in as " + a.profiles.DisplayName()))
	a.activate(ctx)
	return nil
}

// Logout forgets the session and all cached user data.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		a.println(a.styles.err.Render("Logout incomplete: " + common.Detail(err)))
		return err
	}
	a.println("Logged out")
	return nil
}
