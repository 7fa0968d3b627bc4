package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ErrAlreadyAuthorized is returned by CompleteAuthorization when a full
// credential is already persisted.
var ErrAlreadyAuthorized = errors.New("already authorized")

// TokenManager owns the OAuth credential lifecycle: it gates whether a sync
// may run, completes the one-time authorization code exchange, and refreshes
// the access token before each scheduled run.
//
// The persisted credential is the single source of truth. Every operation
// re-reads the store and every successful exchange or refresh is persisted
// synchronously before the operation reports success, so in-memory state can
// never diverge from the last successful persist.
type TokenManager struct {
	oauth *oauth2.Config
	store TokenStore
	state string
}

// NewTokenManager creates a TokenManager over the given OAuth config and store.
func NewTokenManager(oauthConfig *oauth2.Config, store TokenStore) *TokenManager {
	return &TokenManager{
		oauth: oauthConfig,
		store: store,
		state: uuid.NewString(),
	}
}

// AuthURL returns the URL the user must visit to authorize the application.
func (m *TokenManager) AuthURL() string {
	return m.oauth.AuthCodeURL(m.state, oauth2.AccessTypeOffline)
}

// Authorized reports whether a usable credential is persisted: both an
// access token and a refresh token must be present. It never returns an
// error; unreadable or missing storage counts as unauthorized.
func (m *TokenManager) Authorized() bool {
	token, err := m.store.LoadToken()
	if err != nil {
		return false
	}
	return usableCredential(token)
}

// CompleteAuthorization exchanges a one-time authorization code for a token
// pair and persists it. Returns ErrAlreadyAuthorized without touching the
// store if a full credential already exists.
func (m *TokenManager) CompleteAuthorization(ctx context.Context, code string) error {
	if m.Authorized() {
		return ErrAlreadyAuthorized
	}

	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := m.store.SaveToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// Refresh exchanges the persisted refresh token for a fresh access token and
// persists the result. If no usable credential is persisted this is a silent
// no-op; the sync will then fail downstream on the unauthorized API call.
func (m *TokenManager) Refresh(ctx context.Context) error {
	token, err := m.store.LoadToken()
	if err != nil || token == nil || token.RefreshToken == "" {
		return nil
	}

	fresh, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken}).Token()
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	// The token endpoint rarely rotates the refresh token; keep the old one
	// when the response omits it so the credential stays complete.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}

	if err := m.store.SaveToken(fresh); err != nil {
		return fmt.Errorf("failed to save refreshed token: %w", err)
	}

	return nil
}

// Client returns an HTTP client authenticated with the persisted credential.
func (m *TokenManager) Client(ctx context.Context) (*http.Client, error) {
	token, err := m.store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil, errors.New("no credential persisted")
	}

	return oauth2.NewClient(ctx, m.oauth.TokenSource(ctx, token)), nil
}
