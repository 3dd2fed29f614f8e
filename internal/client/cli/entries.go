package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/google/uuid"
)

var errUsage = errors.New("usage")

// Log records a cigarette smoked now. The reason comes from the arguments
// or, when there are none, from a prompt offering the suggested reasons by
// number.
func (a *App) Log(ctx context.Context, args []string) error {
	reason := strings.Join(args, " ")
	if len(args) == 0 {
		var b strings.Builder
		b.WriteString("Why did you smoke? (optional)")
		for i, r := range models.Reasons {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, r.Title)
		}
		text, err := a.prompt(b.String())
		if err != nil {
			return err
		}
		reason = pickReason(text)
	}

	var rp *string
	if reason != "" {
		rp = &reason
	}
	e, err := a.entries.AddEntry(ctx, rp)
	if err != nil {
		a.printErr(common.ActionAddEntry, err)
		return err
	}

	msg := "Logged at " + e.SmokedAt.In(a.loc).Format("15:04")
	if r := e.ReasonText(); r != "" {
		msg += " (" + r + ")"
	}
	a.println(a.styles.ok.Render(msg))
	return nil
}

// pickReason maps a suggestion number to its title; anything else is taken
// as free text.
func pickReason(text string) string {
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(models.Reasons) {
		return models.Reasons[n-1].Title
	}
	return text
}

// List prints the loaded entries, most recent first.
func (a *App) List(context.Context) error {
	st := a.entries.Snapshot()
	if st.ErrorMessage != "" {
		a.println(a.styles.err.Render(st.ErrorMessage))
	}
	if len(st.Entries) == 0 {
		a.println("No entries yet. Use 'log' to record one.")
		return nil
	}
	if st.Stale {
		a.println(a.styles.muted.Render("Showing saved entries; use 'refresh' to update."))
	}
	for i, e := range st.Entries {
		a.printf("%3d. %s  %s\n", i+1, e.SmokedAt.In(a.loc).Format("Mon Jan 2 15:04"), e.ReasonText())
	}
	if st.HasMore {
		a.println(a.styles.muted.Render("More entries available: type 'more'."))
	}
	return nil
}

// More loads the next page and lists everything.
func (a *App) More(ctx context.Context) error {
	if !a.entries.Snapshot().HasMore {
		a.println("No more entries.")
		return nil
	}
	if err := a.entries.LoadMore(ctx); err != nil {
		a.printErr(common.ActionLoadEntries, err)
		return err
	}
	return a.List(ctx)
}

// Delete removes an entry given by its list number or id.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		a.println("Usage: delete <n|id>")
		return errUsage
	}
	id, ok := a.resolveEntry(args[0])
	if !ok {
		a.println(a.styles.err.Render("No such entry: " + args[0]))
		return errUsage
	}
	if err := a.entries.DeleteEntry(ctx, id); err != nil {
		a.printErr(common.ActionDeleteEntry, err)
		return err
	}
	a.println(a.styles.ok.Render("Deleted."))
	return nil
}

func (a *App) resolveEntry(arg string) (string, bool) {
	if _, err := uuid.Parse(arg); err == nil {
		return arg, true
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", false
	}
	st := a.entries.Snapshot()
	if n < 1 || n > len(st.Entries) {
		return "", false
	}
	return st.Entries[n-1].ID, true
}

// Refresh reloads the profile and the first page of entries.
func (a *App) Refresh(ctx context.Context) error {
	perr := a.profiles.ForceRefresh(ctx)
	if perr != nil {
		a.printErr(common.ActionLoadProfile, perr)
	}
	eerr := a.entries.Refresh(ctx)
	if eerr != nil {
		a.printErr(common.ActionLoadEntries, eerr)
	}
	if err := errors.Join(perr, eerr); err != nil {
		return err
	}
	a.println(a.styles.ok.Render(fmt.Sprintf("Up to date: %d entries loaded.", len(a.entries.Snapshot().Entries))))
	return nil
}
