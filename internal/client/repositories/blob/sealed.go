package blob

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/puffpass/internal/cryptox"
)

// SaltKey holds the key-derivation salt in the wrapped store, unencrypted.
const SaltKey = "cache_salt"

// SealedStore encrypts values before handing them to the wrapped store.
type SealedStore struct {
	inner Store
	key   []byte
}

// NewSealedStore wraps inner with a key derived from secret. The salt is
// read from inner, or created and saved on first use.
func NewSealedStore(ctx context.Context, inner Store, secret []byte) (*SealedStore, error) {
	salt, err := inner.Get(ctx, SaltKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache salt: %w", err)
	}
	if len(salt) != cryptox.SaltSize {
		if salt, err = cryptox.NewSalt(); err != nil {
			return nil, err
		}
		if err := inner.Set(ctx, SaltKey, salt); err != nil {
			return nil, fmt.Errorf("failed to save cache salt: %w", err)
		}
	}
	return &SealedStore{inner: inner, key: cryptox.DeriveKey(secret, salt)}, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil || sealed == nil {
		return nil, err
	}
	plain, err := cryptox.Open(s.key, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob[%s]: %w", key, err)
	}
	return plain, nil
}

func (s *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptox.Seal(s.key, value)
	if err != nil {
		return fmt.Errorf("failed to seal blob[%s]: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
