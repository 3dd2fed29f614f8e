package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/services"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/dmitrijs2005/puffpass/internal/logging"
	"github.com/sourcegraph/conc/pool"
)

// Deps are the collaborators of the App.
type Deps struct {
	Auth     services.AuthService
	Profiles *services.ProfileCache
	Entries  *services.EntryStore
	Identity services.Identity
	Logger   logging.Logger

	// In and Out default to os.Stdin and os.Stdout.
	In  io.Reader
	Out io.Writer
	// Location is used for day boundaries; defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
}

type App struct {
	auth     services.AuthService
	profiles *services.ProfileCache
	entries  *services.EntryStore
	identity services.Identity
	log      logging.Logger

	reader *bufio.Reader
	outMu  sync.Mutex
	out    io.Writer
	loc    *time.Location
	now    func() time.Time
	styles styles
}

func NewApp(d Deps) *App {
	a := &App{
		auth:     d.Auth,
		profiles: d.Profiles,
		entries:  d.Entries,
		identity: d.Identity,
		log:      d.Logger,
		out:      d.Out,
		loc:      d.Location,
		now:      d.Now,
		styles:   newStyles(),
	}
	in := d.In
	if in == nil {
		in = os.Stdin
	}
	a.reader = bufio.NewReader(in)
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.log == nil {
		a.log = logging.Nop()
	}
	return a
}

// Run shows the welcome banner, activates a restored session and runs the
// REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	a.println(a.styles.title.Render("Welcome to PuffPass (type 'help' for commands)"))
	if a.isLoggedIn() {
		a.activate(ctx)
	}
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isLoggedIn() bool {
	if a.identity == nil {
		return false
	}
	_, ok := a.identity.CurrentUserID()
	return ok
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "signed out"
	}
	s := a.profiles.DisplayName()
	if a.entries.Snapshot().Stale {
		s += " offline"
	}
	return s
}

// activate shows the saved first page, then loads profile and entries
// concurrently. Failures are printed; the stores keep their prior state.
func (a *App) activate(ctx context.Context) {
	if err := a.entries.Restore(ctx); err != nil {
		a.log.Warn(ctx, "failed to restore entries snapshot", "error", err)
	}

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		if err := a.profiles.Load(ctx); err != nil {
			a.printErr(common.ActionLoadProfile, err)
			return err
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		if err := a.entries.Load(ctx); err != nil {
			a.printErr(common.ActionLoadEntries, err)
			return err
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		a.log.Warn(ctx, "activation incomplete", "error", err)
	}
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// printErr prints the user-facing message for err.
func (a *App) printErr(action common.Action, err error) {
	a.println(a.styles.err.Render(common.UserMessage(action, err)))
}

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}
