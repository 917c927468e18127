// Package auth acquires Google OAuth2 access tokens for accounts. Tokens
// persist as one JSON file per account email under the credentials
// directory; expired tokens are refreshed non-interactively and written
// back. New accounts run the interactive authorization-code flow via
// Login. The reconciliation core only ever calls GetValidToken.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/nholm/gemkeys/pkg/config"
	"github.com/nholm/gemkeys/pkg/oskeyring"
)

// ErrTokenNotFound is returned when no token file exists for an account.
var ErrTokenNotFound = errors.New("no stored token for account")

// keyring location of the OAuth client secret when it is not supplied via
// flag or environment.
const (
	KeyringService    = "gemkeys"
	KeyringSecretName = "oauth-client-secret"
)

// Provider yields a valid access token for an account. Failures are
// account-scoped: the orchestrator records them and skips the account.
type Provider interface {
	GetValidToken(ctx context.Context, email string) (*oauth2.Token, error)
}

// GoogleProvider implements Provider against Google's OAuth2 endpoint with
// token files under CredentialsDir.
type GoogleProvider struct {
	CredentialsDir string
	ClientID       string
	ClientSecret   string

	keyring oskeyring.Service
	logger  *slog.Logger
}

// NewGoogleProvider builds a provider. The client secret may be empty; it
// is then resolved from the OS keyring on first use.
func NewGoogleProvider(credentialsDir, clientID, clientSecret string, keyring oskeyring.Service, logger *slog.Logger) *GoogleProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleProvider{
		CredentialsDir: credentialsDir,
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		keyring:        keyring,
		logger:         logger,
	}
}

func (p *GoogleProvider) tokenPath(email string) string {
	// Emails are safe as file names apart from path separators.
	name := strings.ReplaceAll(email, string(filepath.Separator), "_")
	return filepath.Join(p.CredentialsDir, name+".json")
}

func (p *GoogleProvider) oauthConfig() (*oauth2.Config, error) {
	secret := p.ClientSecret
	if secret == "" && p.keyring != nil {
		s, err := p.keyring.Get(KeyringService, KeyringSecretName)
		if err == nil {
			secret = s
		} else if !errors.Is(err, oskeyring.ErrNotFound) {
			return nil, fmt.Errorf("reading client secret from keyring: %w", err)
		}
	}
	if p.ClientID == "" || secret == "" {
		return nil, errors.New("OAuth client ID and secret are required (flags, GEMKEYS_CLIENT_ID/GEMKEYS_CLIENT_SECRET, or keyring)")
	}
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: secret,
		Endpoint:     google.Endpoint,
		Scopes:       config.Scopes,
	}, nil
}

// GetValidToken loads the account's token file and refreshes the token if
// it has expired, persisting the refreshed token back to disk.
func (p *GoogleProvider) GetValidToken(ctx context.Context, email string) (*oauth2.Token, error) {
	tok, err := p.loadToken(email)
	if err != nil {
		return nil, err
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("token for %s expired and has no refresh token, run 'gemkeys login --email %s'", email, email)
	}

	cfg, err := p.oauthConfig()
	if err != nil {
		return nil, err
	}
	p.logger.Debug("refreshing token", "account", email)
	refreshed, err := cfg.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token for %s: %w", email, err)
	}
	if err := p.saveToken(email, refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

func (p *GoogleProvider) loadToken(email string) (*oauth2.Token, error) {
	data, err := os.ReadFile(p.tokenPath(email))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, email)
		}
		return nil, fmt.Errorf("reading token for %s: %w", email, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decoding token for %s: %w", email, err)
	}
	return &tok, nil
}

func (p *GoogleProvider) saveToken(email string, tok *oauth2.Token) error {
	if err := os.MkdirAll(p.CredentialsDir, 0o700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token for %s: %w", email, err)
	}
	if err := os.WriteFile(p.tokenPath(email), data, 0o600); err != nil {
		return fmt.Errorf("writing token for %s: %w", email, err)
	}
	return nil
}

var _ Provider = (*GoogleProvider)(nil)

// StaticProvider is a Provider for tests: a fixed token per email and an
// optional error per email.
type StaticProvider struct {
	Tokens map[string]*oauth2.Token
	Errs   map[string]error
}

func (s *StaticProvider) GetValidToken(ctx context.Context, email string) (*oauth2.Token, error) {
	if err := s.Errs[email]; err != nil {
		return nil, err
	}
	if tok, ok := s.Tokens[email]; ok {
		return tok, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, email)
}

var _ Provider = (*StaticProvider)(nil)
