// Package session holds the wallet-connection and authentication state for
// one ChainFund client process. The Store is an explicit object constructed
// with its collaborators and passed by injection; there is no package-level
// singleton.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chainfund/chainfund-go/internal/apierror"
	"github.com/chainfund/chainfund-go/internal/gateway"
	"github.com/chainfund/chainfund-go/internal/storage"
	"github.com/chainfund/chainfund-go/internal/wallet"
)

var (
	// ErrProviderUnavailable means no wallet capability is present.
	ErrProviderUnavailable = errors.New("session: wallet provider unavailable")

	// ErrNotConnected means an operation requiring a connected wallet was
	// invoked without one.
	ErrNotConnected = errors.New("session: wallet not connected")

	// ErrOperationInFlight means a ConnectWallet or Login call is already
	// running; the second caller fails fast instead of racing the first.
	ErrOperationInFlight = errors.New("session: operation already in flight")
)

// Connection is the wallet-connection half of the session.
type Connection struct {
	Connected bool
	Address   string
}

// Auth is the backend-authentication half of the session.
//
// A token restored from durable storage marks the session authenticated
// before any backend round-trip (lazy invalidation): Revalidate, scheduled
// immediately after restore and periodically thereafter, either populates
// User or clears Auth when the backend rejects the token.
type Auth struct {
	Authenticated bool
	Token         string
	User          *gateway.User
}

// State is an immutable snapshot of the session. Connecting and LoggingIn
// are transient in-flight flags and are never persisted.
type State struct {
	Connection Connection
	Auth       Auth
	Connecting bool
	LoggingIn  bool
}

// Store owns the session state and the orchestration to acquire it.
type Store struct {
	provider wallet.Provider
	api      *gateway.Client
	durable  storage.Store
	log      zerolog.Logger

	mu    sync.Mutex
	state State
	subs    map[int]func(State)
	nextSub int
}

// Config wires a Store's collaborators.
type Config struct {
	Provider wallet.Provider
	API      *gateway.Client
	Durable  storage.Store
	Logger   *zerolog.Logger
}

// New creates an empty session store.
func New(cfg Config) (*Store, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("session: API client is required")
	}
	if cfg.Durable == nil {
		return nil, fmt.Errorf("session: durable store is required")
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Store{
		provider: cfg.Provider,
		api:      cfg.API,
		durable:  cfg.Durable,
		log:      log,
		subs:     make(map[int]func(State)),
	}, nil
}

// State returns a snapshot of the current session.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every state mutation with the new
// snapshot. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// mutate applies fn to the state under the lock and notifies subscribers
// with the resulting snapshot outside it.
func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}

// ConnectWallet requests account access from the wallet provider and records
// the resulting address. At most one call runs at a time; a concurrent second
// call fails with ErrOperationInFlight. The provider request may block on
// user interaction; cancel via ctx.
func (s *Store) ConnectWallet(ctx context.Context) error {
	if s.provider == nil || !s.provider.Available() {
		return ErrProviderUnavailable
	}

	s.mu.Lock()
	if s.state.Connecting {
		s.mu.Unlock()
		return ErrOperationInFlight
	}
	s.state.Connecting = true
	s.mu.Unlock()

	address, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		s.mutate(func(st *State) { st.Connecting = false })
		return fmt.Errorf("session: connect wallet: %w", err)
	}

	s.mutate(func(st *State) {
		st.Connecting = false
		st.Connection = Connection{Connected: true, Address: address}
	})

	s.persist(ctx, storage.KeyWalletConnected, "true")
	s.persist(ctx, storage.KeyWalletAddress, address)
	return nil
}

// DisconnectWallet clears connection and authentication state and removes
// every durable key. Idempotent; no network call.
func (s *Store) DisconnectWallet(ctx context.Context) {
	s.mutate(func(st *State) {
		st.Connection = Connection{}
		st.Auth = Auth{}
	})

	s.unpersist(ctx, storage.KeyWalletConnected)
	s.unpersist(ctx, storage.KeyWalletAddress)
	s.unpersist(ctx, storage.KeyAuthToken)
}

// Login authenticates the connected wallet with a caller-supplied signature.
// The signature must have been produced against the message SigningMessage
// builds for the current time; SignIn does both steps in one call.
func (s *Store) Login(ctx context.Context, signature string) error {
	address := s.State().Connection.Address
	if address == "" {
		return ErrNotConnected
	}
	message := wallet.SigningMessage(address, time.Now())
	return s.loginWith(ctx, address, signature, message)
}

// SignIn builds the authentication message, signs it via the wallet
// provider, and logs in with that exact message/signature pair.
func (s *Store) SignIn(ctx context.Context) error {
	address := s.State().Connection.Address
	if address == "" {
		return ErrNotConnected
	}
	if s.provider == nil || !s.provider.Available() {
		return ErrProviderUnavailable
	}

	message := wallet.SigningMessage(address, time.Now())
	signature, err := s.provider.SignMessage(ctx, []byte(message))
	if err != nil {
		return fmt.Errorf("session: sign message: %w", err)
	}
	return s.loginWith(ctx, address, signature, message)
}

func (s *Store) loginWith(ctx context.Context, address, signature, message string) error {
	s.mu.Lock()
	if s.state.LoggingIn {
		s.mu.Unlock()
		return ErrOperationInFlight
	}
	s.state.LoggingIn = true
	s.mu.Unlock()

	resp, err := s.api.Auth().Authenticate(ctx, address, signature, message)
	if err != nil {
		s.mutate(func(st *State) { st.LoggingIn = false })
		return fmt.Errorf("session: login: %w", err)
	}

	user := resp.User
	s.mutate(func(st *State) {
		st.LoggingIn = false
		st.Auth = Auth{Authenticated: true, Token: resp.AccessToken, User: &user}
	})

	s.persist(ctx, storage.KeyAuthToken, resp.AccessToken)
	return nil
}

// Logout clears authentication state and the persisted token. The wallet
// connection survives. No network call; cannot fail.
func (s *Store) Logout(ctx context.Context) {
	s.mutate(func(st *State) { st.Auth = Auth{} })
	s.unpersist(ctx, storage.KeyAuthToken)
}

// SetUser replaces the authenticated user record without validation or side
// effects. An escape hatch for callers that already trust the data.
func (s *Store) SetUser(user *gateway.User) {
	s.mutate(func(st *State) { st.Auth.User = user })
}

// Revalidate checks the held token against the backend. A 200 populates
// Auth.User; a 401 clears auth and the stored token. Other failures leave
// the session untouched so a flaky network never logs the user out.
func (s *Store) Revalidate(ctx context.Context) error {
	st := s.State()
	if st.Auth.Token == "" {
		return nil
	}

	user, err := s.api.Auth().Me(ctx, st.Connection.Address)
	if err != nil {
		if apierror.IsStatus(err, 401) {
			s.log.Info().Msg("stored token rejected, clearing session auth")
			s.mutate(func(inner *State) { inner.Auth = Auth{} })
			s.unpersist(ctx, storage.KeyAuthToken)
			return nil
		}
		return fmt.Errorf("session: revalidate: %w", err)
	}

	s.mutate(func(inner *State) {
		inner.Auth.Authenticated = true
		inner.Auth.User = user
	})
	return nil
}

// persist writes one durable key. Storage writes are last-write-wins and
// non-transactional; a failure is logged, never propagated.
func (s *Store) persist(ctx context.Context, key, value string) {
	if err := s.durable.Set(ctx, key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("persist session key")
	}
}

func (s *Store) unpersist(ctx context.Context, key string) {
	if err := s.durable.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("remove session key")
	}
}
