package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendREST:
		u, err := url.Parse(c.BackendURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid backend url %q", c.BackendURL)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres backend requires a dsn")
		}
		if _, err := uuid.Parse(c.UserID); err != nil {
			return fmt.Errorf("postgres backend requires a valid user id, got %q", c.UserID)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.CacheBackend != CacheSQLite && c.CacheBackend != CacheFile {
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.ProfileValidity <= 0 {
		return errors.New("profile cache validity must be positive")
	}
	return nil
}
