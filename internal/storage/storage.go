// Package storage provides the durable key-value store backing the wallet
// session: a local file for desktop use and Redis for headless deployments.
// Writes are last-write-wins with no transactional grouping across keys.
package storage

import (
	"context"
	"errors"
)

// Durable session keys.
const (
	KeyWalletConnected = "wallet_connected"
	KeyWalletAddress   = "wallet_address"
	KeyAuthToken       = "auth_token"
)

// ErrNotFound is returned when a key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Store is a durable string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Token reads the persisted bearer token, returning "" when absent.
func Token(ctx context.Context, s Store) (string, error) {
	token, err := s.Get(ctx, KeyAuthToken)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}
