package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authServer serves a scripted sequence of token responses and records the
// credential payloads it receives.
type authServer struct {
	mu       sync.Mutex
	tokens   []string
	calls    int
	received []Credential
	status   int
	body     string
}

func (s *authServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cred Credential
	json.NewDecoder(r.Body).Decode(&cred)
	s.received = append(s.received, cred)

	if s.status != 0 {
		w.WriteHeader(s.status)
		w.Write([]byte(s.body))
		return
	}

	token := s.tokens[s.calls]
	s.calls++
	json.NewEncoder(w).Encode(map[string]string{"access_token": token})
}

func newAuthServer(t *testing.T, tokens ...string) (*authServer, *httptest.Server) {
	t.Helper()
	s := &authServer{tokens: tokens}
	srv := httptest.NewServer(http.HandlerFunc(s.handler))
	t.Cleanup(srv.Close)
	return s, srv
}

func TestExchangeReturnsToken(t *testing.T) {
	s, srv := newAuthServer(t, "bearer-abc")

	auth := NewAuthenticator(srv.Client(), srv.URL, Credential{
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		Audience:     "https://portal-api.example.com",
	})

	token, err := auth.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bearer-abc", token)

	require.Len(t, s.received, 1)
	assert.Equal(t, "id-1", s.received[0].ClientID)
	assert.Equal(t, "secret-1", s.received[0].ClientSecret)
	// The grant type is forced regardless of what the caller set.
	assert.Equal(t, "client_credentials", s.received[0].GrantType)
}

func TestExchangeFailurePreservesRawBody(t *testing.T) {
	s, srv := newAuthServer(t)
	s.status = http.StatusUnauthorized
	s.body = `{"error":"access_denied","error_description":"unauthorized client"}`

	auth := NewAuthenticator(srv.Client(), srv.URL, Credential{ClientID: "id", ClientSecret: "bad"})
	_, err := auth.Exchange(context.Background())

	require.Error(t, err)
	assert.True(t, IsAuthError(err))

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	// Verbatim upstream payload, not a paraphrase.
	assert.Equal(t, s.body, string(ae.RawBody))
	assert.Contains(t, err.Error(), "unauthorized client")
}

func TestExchangeMissingAccessToken(t *testing.T) {
	s, srv := newAuthServer(t)
	s.status = http.StatusOK
	s.body = `{"token_type":"Bearer"}`

	auth := NewAuthenticator(srv.Client(), srv.URL, Credential{ClientID: "id", ClientSecret: "s"})
	_, err := auth.Exchange(context.Background())

	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "no access_token")
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"aud": "https://portal-api.example.com",
	})
	s, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestCachingTokenSourceOpaqueTokenFetchedOnce(t *testing.T) {
	s, srv := newAuthServer(t, "opaque-token")

	tokens := NewCachingTokenSource(NewAuthenticator(srv.Client(), srv.URL, Credential{ClientID: "id", ClientSecret: "s"}))

	for i := 0; i < 3; i++ {
		tok, err := tokens.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "opaque-token", tok)
	}
	// No readable expiry, so no refresh.
	assert.Equal(t, 1, s.calls)
}

func TestCachingTokenSourceRefreshesNearExpiry(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := signedJWT(t, base.Add(time.Hour))
	second := signedJWT(t, base.Add(2*time.Hour))
	s, srv := newAuthServer(t, first, second)

	tokens := NewCachingTokenSource(NewAuthenticator(srv.Client(), srv.URL, Credential{ClientID: "id", ClientSecret: "s"}))
	now := base
	tokens.now = func() time.Time { return now }

	tok, err := tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, tok)
	assert.Equal(t, 1, s.calls)

	// Well inside the validity window: cached token is reused.
	now = base.Add(30 * time.Minute)
	tok, err = tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, tok)
	assert.Equal(t, 1, s.calls)

	// Within RefreshSkew of the exp claim: re-exchange.
	now = base.Add(time.Hour - 10*time.Second)
	tok, err = tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, tok)
	assert.Equal(t, 2, s.calls)

	// The fresh token carries its own expiry; no immediate re-refresh.
	tok, err = tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, tok)
	assert.Equal(t, 2, s.calls)
}

func TestCachingTokenSourcePropagatesAuthError(t *testing.T) {
	s, srv := newAuthServer(t)
	s.status = http.StatusForbidden
	s.body = `{"error":"access_denied"}`

	tokens := NewCachingTokenSource(NewAuthenticator(srv.Client(), srv.URL, Credential{ClientID: "id", ClientSecret: "s"}))
	_, err := tokens.Token(context.Background())

	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestStaticTokenSource(t *testing.T) {
	tok, err := StaticTokenSource("fixed").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed", tok)
}
