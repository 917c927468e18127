package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/oauth2"
)

// Login runs the interactive authorization-code flow for one account: a
// loopback listener receives the redirect, the user authorizes in the
// browser under the account's Google identity, and the resulting token
// (including a refresh token) is saved to the account's token file.
func (p *GoogleProvider) Login(ctx context.Context, email string) error {
	cfg, err := p.oauthConfig()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("starting redirect listener: %w", err)
	}
	defer ln.Close()
	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	state, err := randomState()
	if err != nil {
		return err
	}

	type callback struct {
		code string
		err  error
	}
	results := make(chan callback, 1)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("state") != state {
			results <- callback{err: errors.New("state mismatch in OAuth redirect")}
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if errMsg := q.Get("error"); errMsg != "" {
			results <- callback{err: fmt.Errorf("authorization refused: %s", errMsg)}
			fmt.Fprintln(w, "Authorization failed. You can close this window.")
			return
		}
		results <- callback{code: q.Get("code")}
		fmt.Fprintln(w, "Authentication complete. You can close this window and return to gemkeys.")
	})}
	go srv.Serve(ln)
	defer srv.Close()

	// AccessTypeOffline plus forced consent so Google issues a refresh
	// token even when the account authorized this client before.
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("login_hint", email))

	fmt.Printf("Authorize %s by visiting:\n\n  %s\n\nWaiting for the browser redirect...\n", email, authURL)

	var cb callback
	select {
	case <-ctx.Done():
		return ctx.Err()
	case cb = <-results:
	}
	if cb.err != nil {
		return cb.err
	}

	tok, err := cfg.Exchange(ctx, cb.code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code for %s: %w", email, err)
	}
	if err := p.saveToken(email, tok); err != nil {
		return err
	}
	p.logger.Info("stored token", "account", email, "path", p.tokenPath(email))
	return nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating OAuth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
