package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential holds the long-lived client credentials exchanged for a bearer
// token. Supplied once at process start and never persisted.
type Credential struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
	GrantType    string `json:"grant_type"`
}

// Authenticator exchanges a Credential for a short-lived bearer token.
// One attempt per call; no retry. A failed exchange is an AuthError carrying
// the raw upstream payload.
type Authenticator struct {
	httpClient *http.Client
	tokenURL   string
	cred       Credential
}

// NewAuthenticator creates an Authenticator for the given token endpoint.
// The grant type is forced to client_credentials, which is the only grant
// the portal supports.
func NewAuthenticator(httpClient *http.Client, tokenURL string, cred Credential) *Authenticator {
	cred.GrantType = "client_credentials"
	return &Authenticator{
		httpClient: httpClient,
		tokenURL:   tokenURL,
		cred:       cred,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Exchange performs the credential exchange and returns the bearer token.
func (a *Authenticator) Exchange(ctx context.Context) (string, error) {
	body, err := json.Marshal(a.cred)
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("encode credential: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{StatusCode: resp.StatusCode, RawBody: raw}
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return "", &AuthError{StatusCode: resp.StatusCode, RawBody: raw, Err: err}
	}
	if tok.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, RawBody: raw, Err: fmt.Errorf("response contains no access_token")}
	}

	return tok.AccessToken, nil
}

// TokenSource supplies a bearer token for each outgoing request.
//
// The indirection exists so refresh policy lives in one place: callers ask
// for a token per request instead of assuming one token stays valid for the
// whole run.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token. Used in tests and for callers that
// already hold a token from elsewhere.
type StaticTokenSource string

// Token implements TokenSource.
func (s StaticTokenSource) Token(context.Context) (string, error) { return string(s), nil }

// CachingTokenSource exchanges credentials on first use and caches the token.
//
// When the token is a JWT, its exp claim is read (without signature
// verification — this client is not the token's verifier) and the token is
// re-exchanged once the current time falls within RefreshSkew of expiry.
// Opaque tokens have no readable expiry and are fetched exactly once, which
// matches the assumption the run stays inside the token's validity window.
//
// Thread-safety: safe for concurrent use, although the run itself is
// strictly sequential.
type CachingTokenSource struct {
	auth *Authenticator

	// RefreshSkew is how long before expiry the token is considered stale.
	RefreshSkew time.Duration

	// now is overridable for tests.
	now func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time // zero when the token has no readable expiry
}

// DefaultRefreshSkew is the margin kept between "refresh now" and the exp claim.
const DefaultRefreshSkew = 30 * time.Second

// NewCachingTokenSource wraps an Authenticator with caching and
// refresh-when-needed behavior.
func NewCachingTokenSource(auth *Authenticator) *CachingTokenSource {
	return &CachingTokenSource{
		auth:        auth,
		RefreshSkew: DefaultRefreshSkew,
		now:         time.Now,
	}
}

// Token returns the cached bearer token, exchanging credentials first if no
// token is held or the held one is at or past its refresh point.
func (c *CachingTokenSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !c.stale() {
		return c.token, nil
	}

	tok, err := c.auth.Exchange(ctx)
	if err != nil {
		return "", err
	}

	c.token = tok
	c.expiry = tokenExpiry(tok)
	return c.token, nil
}

func (c *CachingTokenSource) stale() bool {
	if c.expiry.IsZero() {
		return false
	}
	return !c.now().Before(c.expiry.Add(-c.RefreshSkew))
}

// tokenExpiry extracts the exp claim from a JWT bearer token.
// Returns the zero time for opaque tokens or tokens without exp.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
