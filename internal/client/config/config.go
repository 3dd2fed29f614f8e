// Package config loads runtime configuration for the PuffPass client.
//
// Sources, later ones overriding earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory and PUFFPASS_* variables.
//  3. A JSON or TOML file selected with -c / -config.
//  4. Command-line flags.
//
// Flags:
//
//	-a string   backend base URL
//	-k string   backend API key
//	-d string   local database path
//	-t int      request timeout (seconds)
//	-l string   locale, e.g. en_IN.UTF-8
package config

import (
	"time"
)

// Backend kinds.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Cache backends for the persisted profile blob.
const (
	CacheSQLite = "sqlite"
	CacheFile   = "file"
)

// Config holds runtime settings.
type Config struct {
	BackendURL  string
	APIKey      string
	Backend     string
	PostgresDSN string
	// UserID identifies the user when talking to Postgres directly; the
	// REST backend takes it from the session instead.
	UserID string

	DatabasePath string
	CacheBackend string
	CacheDir     string
	// CacheSecret, when set, encrypts the persisted profile blob.
	CacheSecret string

	RequestTimeout  time.Duration
	ProfileValidity time.Duration
	PageSize        int
	RetryAttempts   uint

	Locale           string
	PriceCatalogFile string

	LogFile  string
	LogLevel string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:54321"
	c.APIKey = ""
	c.Backend = BackendREST
	c.PostgresDSN = ""
	c.UserID = ""
	c.DatabasePath = "puffpass.db"
	c.CacheBackend = CacheSQLite
	c.CacheDir = ".puffpass"
	c.CacheSecret = ""
	c.RequestTimeout = 15 * time.Second
	c.ProfileValidity = time.Hour
	c.PageSize = 20
	c.RetryAttempts = 3
	c.Locale = ""
	c.PriceCatalogFile = ""
	c.LogFile = "puffpass.log"
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, environment, file and flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
