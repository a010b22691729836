// Package wallet provides the wallet-provider capability used by the session
// layer: account access, message signing, and signature recovery compatible
// with the backend's personal_sign verification.
package wallet

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no wallet capability is present. The user
// action is installing or initializing a wallet.
var ErrUnavailable = errors.New("wallet: no provider available")

// ErrLocked is returned when signing is attempted before account access was
// granted.
var ErrLocked = errors.New("wallet: provider is locked")

// Provider is the host wallet capability. RequestAccounts may block on user
// interaction (a passphrase prompt, an approval dialog) and should honor ctx.
type Provider interface {
	// Available reports whether the capability is present at all.
	Available() bool

	// RequestAccounts asks the provider for account access and returns the
	// active account address.
	RequestAccounts(ctx context.Context) (string, error)

	// Address returns the active account address, or "" before access was
	// granted.
	Address() string

	// SignMessage signs msg with personal_sign semantics and returns the
	// 0x-prefixed 65-byte r||s||v signature.
	SignMessage(ctx context.Context, msg []byte) (string, error)
}
