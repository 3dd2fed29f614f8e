package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is read if present; variables already set in the environment win.
var envFile = ".env"

// parseEnv overlays PUFFPASS_* variables.
func parseEnv(cfg *Config) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("PUFFPASS_BACKEND_URL", &cfg.BackendURL)
	str("PUFFPASS_API_KEY", &cfg.APIKey)
	str("PUFFPASS_BACKEND", &cfg.Backend)
	str("PUFFPASS_POSTGRES_DSN", &cfg.PostgresDSN)
	str("PUFFPASS_USER_ID", &cfg.UserID)
	str("PUFFPASS_CACHE_SECRET", &cfg.CacheSecret)
	str("PUFFPASS_DATABASE_PATH", &cfg.DatabasePath)
	str("PUFFPASS_CACHE_BACKEND", &cfg.CacheBackend)
	str("PUFFPASS_CACHE_DIR", &cfg.CacheDir)
	str("PUFFPASS_LOCALE", &cfg.Locale)
	str("PUFFPASS_PRICE_CATALOG_FILE", &cfg.PriceCatalogFile)
	str("PUFFPASS_LOG_FILE", &cfg.LogFile)
	str("PUFFPASS_LOG_LEVEL", &cfg.LogLevel)

	if v, ok := os.LookupEnv("PUFFPASS_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PUFFPASS_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v, ok := os.LookupEnv("PUFFPASS_PROFILE_VALIDITY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PUFFPASS_PROFILE_VALIDITY: %w", err)
		}
		cfg.ProfileValidity = d
	}
	if v, ok := os.LookupEnv("PUFFPASS_PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PUFFPASS_PAGE_SIZE: %w", err)
		}
		cfg.PageSize = n
	}
	return nil
}
