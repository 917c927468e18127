package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nholm/gemkeys/pkg/oskeyring"
)

func newProvider(t *testing.T) *GoogleProvider {
	t.Helper()
	return NewGoogleProvider(t.TempDir(), "client-id", "client-secret", oskeyring.NewMemoryService(), nil)
}

func TestGetValidTokenMissingFile(t *testing.T) {
	p := newProvider(t)

	_, err := p.GetValidToken(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestGetValidTokenReturnsStoredToken(t *testing.T) {
	p := newProvider(t)
	stored := &oauth2.Token{
		AccessToken: "tok",
		Expiry:      time.Now().Add(time.Hour),
	}
	require.NoError(t, p.saveToken("a@x.com", stored))

	got, err := p.GetValidToken(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.AccessToken)
}

func TestGetValidTokenExpiredWithoutRefreshToken(t *testing.T) {
	p := newProvider(t)
	stored := &oauth2.Token{
		AccessToken: "tok",
		Expiry:      time.Now().Add(-time.Hour),
	}
	require.NoError(t, p.saveToken("a@x.com", stored))

	_, err := p.GetValidToken(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemkeys login")
}

func TestTokenRoundTrip(t *testing.T) {
	p := newProvider(t)
	stored := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.saveToken("a@x.com", stored))

	got, err := p.loadToken("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, stored.AccessToken, got.AccessToken)
	assert.Equal(t, stored.RefreshToken, got.RefreshToken)
	assert.True(t, stored.Expiry.Equal(got.Expiry))

	info, err := os.Stat(p.tokenPath("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadTokenRejectsGarbage(t *testing.T) {
	p := newProvider(t)
	require.NoError(t, os.MkdirAll(p.CredentialsDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(p.CredentialsDir, "a@x.com.json"), []byte("not json"), 0o600))

	_, err := p.loadToken("a@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding token")
}

func TestOAuthConfigSecretFromKeyring(t *testing.T) {
	keyring := oskeyring.NewMemoryService()
	require.NoError(t, keyring.Set(KeyringService, KeyringSecretName, "keyring-secret"))
	p := NewGoogleProvider(t.TempDir(), "client-id", "", keyring, nil)

	cfg, err := p.oauthConfig()
	require.NoError(t, err)
	assert.Equal(t, "keyring-secret", cfg.ClientSecret)
	assert.Equal(t, "client-id", cfg.ClientID)
}

func TestOAuthConfigMissingSecret(t *testing.T) {
	p := NewGoogleProvider(t.TempDir(), "client-id", "", oskeyring.NewMemoryService(), nil)

	_, err := p.oauthConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client ID and secret")
}
