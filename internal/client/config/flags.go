package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/flagx"
)

// parseFlags overlays cfg with the flags this package owns. Other flags on
// the command line are left for their owners.
func parseFlags(cfg *Config, args []string) error {
	owned := flagx.FilterArgs(args, []string{"-a", "-k", "-d", "-t", "-l"})

	fs := flag.NewFlagSet("puffpass", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BackendURL, "a", cfg.BackendURL, "backend base URL")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "backend API key")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.Locale, "l", cfg.Locale, "locale used for currency detection")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(owned); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}
