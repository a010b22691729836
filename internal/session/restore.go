package session

import (
	"context"
	"errors"
	"time"

	"github.com/chainfund/chainfund-go/internal/storage"
)

const revalidateTimeout = 15 * time.Second

// Restore rehydrates the session from durable storage at process start.
//
// A saved token is copied into Auth and the session is marked authenticated
// without waiting on the backend; a background Revalidate then confirms or
// clears it. When the connection flag is set and a wallet provider is
// available, reconnection runs in the background too. Both background steps
// are best effort: their failures are logged, never propagated, and the
// caller is not blocked on them.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.durable.Get(ctx, storage.KeyAuthToken)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	connected, err := s.durable.Get(ctx, storage.KeyWalletConnected)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if token != "" {
		s.mutate(func(st *State) {
			st.Auth = Auth{Authenticated: true, Token: token}
		})
		go func() {
			rctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
			defer cancel()
			if err := s.Revalidate(rctx); err != nil {
				s.log.Warn().Err(err).Msg("startup token revalidation failed")
			}
		}()
	}

	if connected == "true" && s.provider != nil && s.provider.Available() {
		go func() {
			if err := s.ConnectWallet(context.Background()); err != nil {
				s.log.Warn().Err(err).Msg("startup wallet reconnect failed")
			}
		}()
	}

	return nil
}
