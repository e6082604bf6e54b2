// Package auth provides the OAuth glue for the Google Calendar store:
// token persistence and the interactive authorization-code flow.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/oauth2"
)

// TokenStore is an interface for saving and loading OAuth tokens.
type TokenStore interface {
	SaveToken(token *oauth2.Token) error
	LoadToken() (*oauth2.Token, error)
}

// FileTokenStore persists the OAuth token as JSON in a single file.
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore creates a FileTokenStore backed by path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

func (s *FileTokenStore) SaveToken(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// LoadToken returns nil, nil when the file does not exist yet (first run).
func (s *FileTokenStore) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
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

// savingTokenSource wraps an oauth2.TokenSource and persists every
// refreshed token so later runs skip the interactive flow.
type savingTokenSource struct {
	source oauth2.TokenSource
	store  TokenStore
	last   *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}

	if s.last == nil || s.last.AccessToken != token.AccessToken {
		if err := s.store.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		s.last = token
	}

	return token, nil
}

// Client returns an authenticated HTTP client. On first run (no stored
// token) the user is prompted on stdin to complete the authorization-code
// flow.
func Client(ctx context.Context, oauthConfig *oauth2.Config, store TokenStore) (*http.Client, error) {
	return ClientWithReader(ctx, oauthConfig, store, os.Stdin)
}

// ClientWithReader is Client with the authorization code read from the
// given reader, which tests use instead of stdin.
func ClientWithReader(ctx context.Context, oauthConfig *oauth2.Config, store TokenStore, reader io.Reader) (*http.Client, error) {
	token, err := store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if token == nil {
		token, err = authorize(ctx, oauthConfig, reader)
		if err != nil {
			return nil, err
		}
		if err := store.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
	}

	source := &savingTokenSource{
		source: oauth2.ReuseTokenSource(token, oauthConfig.TokenSource(ctx, token)),
		store:  store,
		last:   token,
	}
	return oauth2.NewClient(ctx, source), nil
}

// authorize walks the user through the interactive authorization-code
// exchange.
func authorize(ctx context.Context, oauthConfig *oauth2.Config, reader io.Reader) (*oauth2.Token, error) {
	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	fmt.Println("Please visit the following URL to authorize the application:")
	fmt.Println(authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Fscanln(reader, &code); err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}
