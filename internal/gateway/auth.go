package gateway

import (
	"context"
	"net/http"
	"net/url"
)

// AuthClient handles user registration and wallet-signature authentication.
type AuthClient struct {
	client *Client
}

// Authenticate exchanges a wallet signature for a bearer token. The message
// must be the exact text the signature was produced against.
func (a *AuthClient) Authenticate(ctx context.Context, walletAddress, signature, message string) (*AuthResponse, error) {
	req := AuthRequest{
		WalletAddress: walletAddress,
		Signature:     signature,
		Message:       message,
	}

	raw, err := a.client.request(ctx, http.MethodPost, "/users/auth", "/users/auth", nil, req, nil)
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := a.client.decodeInto("/users/auth", raw, &out, "access_token", "user.wallet_address"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a user record for a wallet, or refreshes the email of an
// existing one.
func (a *AuthClient) Register(ctx context.Context, walletAddress, email string) (*User, error) {
	req := RegisterRequest{WalletAddress: walletAddress, Email: email}

	raw, err := a.client.request(ctx, http.MethodPost, "/users/register", "/users/register", nil, req, nil)
	if err != nil {
		return nil, err
	}

	var out User
	if err := a.client.decodeInto("/users/register", raw, &out, "wallet_address"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the user record for a wallet. With a bearer token attached the
// backend also accepts an empty walletAddress and resolves it from the token.
func (a *AuthClient) Me(ctx context.Context, walletAddress string) (*User, error) {
	query := url.Values{}
	if walletAddress != "" {
		query.Set("wallet_address", walletAddress)
	}

	raw, err := a.client.request(ctx, http.MethodGet, "/users/me", "/users/me", query, nil, nil)
	if err != nil {
		return nil, err
	}

	var out User
	if err := a.client.decodeInto("/users/me", raw, &out, "wallet_address"); err != nil {
		return nil, err
	}
	return &out, nil
}
