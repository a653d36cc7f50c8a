package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// expiryMargin is subtracted from the token TTL so a token is never used
// within a minute of its server-side expiry.
const expiryMargin = 60 * time.Second

// TokenSource obtains and caches a bearer token for the catalog API using
// the client-credentials grant. A cached token is reused until it is within
// expiryMargin of expiring; refreshes are single-flight, so concurrent
// callers all receive the same refreshed token.
type TokenSource struct {
	client       *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	now          func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource creates a token source for the given credential endpoint.
func NewTokenSource(tokenURL, clientID, clientSecret string) *TokenSource {
	return &TokenSource{
		client:       &http.Client{Timeout: 10 * time.Second},
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// SetClock overrides the time source, for deterministic expiry tests.
func (ts *TokenSource) SetClock(now func() time.Time) {
	ts.mu.Lock()
	ts.now = now
	ts.mu.Unlock()
}

// tokenResponse is the credential endpoint's success payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a valid bearer token, refreshing it if the cached one has
// expired. A failed exchange returns *AuthError.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiry) {
		return ts.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	basic := base64.StdEncoding.EncodeToString([]byte(ts.clientID + ":" + ts.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", &AuthError{Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", &AuthError{Cause: err}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", &AuthError{Cause: fmt.Errorf("parsing token response: %w", err)}
	}
	if tok.AccessToken == "" {
		return "", &AuthError{Cause: fmt.Errorf("empty access token in response")}
	}

	ts.token = tok.AccessToken
	ts.expiry = ts.now().Add(time.Duration(tok.ExpiresIn)*time.Second - expiryMargin)

	return ts.token, nil
}
