package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// TokenStore is an interface for saving and loading the OAuth credential.
type TokenStore interface {
	SaveToken(token *oauth2.Token) error
	LoadToken() (*oauth2.Token, error)
}

// FileTokenStore persists the credential as a single JSON blob on disk.
// The file is the sole piece of durable state this tool keeps, so it is
// always replaced wholesale, never partially updated.
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore creates a new FileTokenStore with the given path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

// SaveToken persists an OAuth token, replacing any previous credential.
// The blob is written to a temporary file and renamed into place, so a
// LoadToken racing a refresh never sees a partial write.
func (store *FileTokenStore) SaveToken(token *oauth2.Token) error {
	if token == nil {
		return errors.New("refusing to persist a nil token")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	tmp := store.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, store.Path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}

// LoadToken loads the OAuth token from the file at store.Path.
// Returns nil, nil if the file does not exist (no error).
func (store *FileTokenStore) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(store.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

// usableCredential reports whether a loaded token can drive unattended
// syncing: both the access token and the refresh token must be present.
// A nil token (nothing persisted yet) is never usable.
func usableCredential(token *oauth2.Token) bool {
	return token != nil && token.AccessToken != "" && token.RefreshToken != ""
}
