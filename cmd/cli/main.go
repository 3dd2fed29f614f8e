package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/puffpass/internal/buildinfo"
	"github.com/dmitrijs2005/puffpass/internal/client/cli"
	"github.com/dmitrijs2005/puffpass/internal/client/client"
	"github.com/dmitrijs2005/puffpass/internal/client/client/pgtables"
	"github.com/dmitrijs2005/puffpass/internal/client/config"
	"github.com/dmitrijs2005/puffpass/internal/client/currency"
	"github.com/dmitrijs2005/puffpass/internal/client/localdb"
	"github.com/dmitrijs2005/puffpass/internal/client/pricing"
	"github.com/dmitrijs2005/puffpass/internal/client/repositories/blob"
	"github.com/dmitrijs2005/puffpass/internal/client/services"
	"github.com/dmitrijs2005/puffpass/internal/client/session"
	"github.com/dmitrijs2005/puffpass/internal/logging"
	"github.com/spf13/afero"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}

// backend bundles the remote tables with the identity they are scoped to.
type backend struct {
	users    client.Users
	entries  client.Entries
	sessions services.Sessions
	close    func() error
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, logCloser := logging.NewFile(cfg.LogFile, level)
	defer logCloser.Close()

	repos, err := localdb.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer repos.Close()

	var store blob.Store = repos.Metadata
	if cfg.CacheBackend == config.CacheFile {
		store = blob.NewFileStore(afero.NewOsFs(), cfg.CacheDir)
	}
	if cfg.CacheSecret != "" {
		if store, err = blob.NewSealedStore(ctx, store, []byte(cfg.CacheSecret)); err != nil {
			return err
		}
	}

	be, err := openBackend(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer be.close()

	catalog, err := loadCatalog(cfg.PriceCatalogFile)
	if err != nil {
		return err
	}
	locale := cfg.Locale
	if locale == "" {
		locale = currency.LocaleFromEnv()
	}

	profiles := services.NewProfileCache(ctx, be.users, be.sessions, store, services.ProfileCacheOptions{
		Validity: cfg.ProfileValidity,
		Locale:   locale,
		Catalog:  catalog,
		Logger:   logger.With("component", "profile"),
	})
	entries := services.NewEntryStore(be.entries, be.sessions, services.EntryStoreOptions{
		PageSize:  cfg.PageSize,
		Snapshots: repos.Entries,
		Logger:    logger.With("component", "entries"),
	})
	auth := services.NewAuthService(be.sessions, be.users, profiles, entries, logger.With("component", "auth"))

	app := cli.NewApp(cli.Deps{
		Auth:     auth,
		Profiles: profiles,
		Entries:  entries,
		Identity: be.sessions,
		Logger:   logger,
	})
	app.Run(ctx)
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config, store blob.Store, logger logging.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := pgtables.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		tables := pgtables.New(db)
		return &backend{
			users:    tables,
			entries:  tables,
			sessions: session.NewStatic(cfg.UserID),
			close:    db.Close,
		}, nil

	default:
		rc, err := client.NewRESTClient(client.Options{
			BaseURL:       cfg.BackendURL,
			APIKey:        cfg.APIKey,
			Timeout:       cfg.RequestTimeout,
			RetryAttempts: cfg.RetryAttempts,
			Logger:        logger.With("component", "rest"),
		})
		if err != nil {
			return nil, err
		}
		sm := session.NewManager(rc, store, logger.With("component", "session"))
		if err := sm.Restore(ctx); err != nil {
			logger.Warn(ctx, "failed to restore session", "error", err)
		}
		rc.SetTokenSource(sm)
		return &backend{
			users:    rc,
			entries:  rc,
			sessions: sm,
			close:    func() error { return nil },
		}, nil
	}
}

func loadCatalog(path string) (*pricing.Catalog, error) {
	if path == "" {
		return pricing.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price catalog: %w", err)
	}
	defer f.Close()
	return pricing.LoadCatalog(f)
}
