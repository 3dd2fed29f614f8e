package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/puffpass/internal/flagx"
	"github.com/dmitrijs2005/puffpass/internal/timex"
	"github.com/pelletier/go-toml/v2"
)

// FileConfig is the on-disk shape of the config file. Pointer fields
// distinguish "absent" from zero values so a file can override a subset.
type FileConfig struct {
	BackendURL       *string         `json:"backend_url" toml:"backend_url"`
	APIKey           *string         `json:"api_key" toml:"api_key"`
	Backend          *string         `json:"backend" toml:"backend"`
	PostgresDSN      *string         `json:"postgres_dsn" toml:"postgres_dsn"`
	UserID           *string         `json:"user_id" toml:"user_id"`
	DatabasePath     *string         `json:"database_path" toml:"database_path"`
	CacheBackend     *string         `json:"cache_backend" toml:"cache_backend"`
	CacheDir         *string         `json:"cache_dir" toml:"cache_dir"`
	CacheSecret      *string         `json:"cache_secret" toml:"cache_secret"`
	RequestTimeout   *timex.Duration `json:"request_timeout" toml:"request_timeout"`
	ProfileValidity  *timex.Duration `json:"profile_cache_validity" toml:"profile_cache_validity"`
	PageSize         *int            `json:"page_size" toml:"page_size"`
	RetryAttempts    *uint           `json:"retry_attempts" toml:"retry_attempts"`
	Locale           *string         `json:"locale" toml:"locale"`
	PriceCatalogFile *string         `json:"price_catalog_file" toml:"price_catalog_file"`
	LogFile          *string         `json:"log_file" toml:"log_file"`
	LogLevel         *string         `json:"log_level" toml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config. Files ending in
// .toml are decoded as TOML, everything else as JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setStr := func(src *string, dst *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(fc.BackendURL, &cfg.BackendURL)
	setStr(fc.APIKey, &cfg.APIKey)
	setStr(fc.Backend, &cfg.Backend)
	setStr(fc.PostgresDSN, &cfg.PostgresDSN)
	setStr(fc.UserID, &cfg.UserID)
	setStr(fc.DatabasePath, &cfg.DatabasePath)
	setStr(fc.CacheBackend, &cfg.CacheBackend)
	setStr(fc.CacheDir, &cfg.CacheDir)
	setStr(fc.CacheSecret, &cfg.CacheSecret)
	setStr(fc.Locale, &cfg.Locale)
	setStr(fc.PriceCatalogFile, &cfg.PriceCatalogFile)
	setStr(fc.LogFile, &cfg.LogFile)
	setStr(fc.LogLevel, &cfg.LogLevel)

	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.ProfileValidity != nil {
		cfg.ProfileValidity = fc.ProfileValidity.Duration
	}
	if fc.PageSize != nil {
		cfg.PageSize = *fc.PageSize
	}
	if fc.RetryAttempts != nil {
		cfg.RetryAttempts = *fc.RetryAttempts
	}
}
