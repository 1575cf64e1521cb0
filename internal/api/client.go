package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds each portal call. A hung request stalls the whole
// sequential run, so every call carries a deadline.
const DefaultTimeout = 30 * time.Second

// Client issues GraphQL documents against the portal endpoint.
//
// All calls are strictly sequential from the caller's side; Client adds no
// concurrency of its own. Each call fetches a token from the TokenSource,
// POSTs one request, and classifies the result.
type Client struct {
	httpClient *http.Client
	endpoint   string
	tokens     TokenSource
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a portal client for the given GraphQL endpoint.
func NewClient(endpoint string, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		endpoint:   endpoint,
		tokens:     tokens,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// do POSTs one GraphQL document and decodes the data block into out.
//
// Failure classification:
//   - token acquisition failure propagates unchanged (AuthError)
//   - request/connection/status/decoding failures become TransportError
//   - a non-empty errors array becomes GraphQLError with the raw payload
func (c *Client) do(ctx context.Context, op, query string, variables map[string]any, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Body: raw}
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Body: raw, Err: fmt.Errorf("decode response: %w", err)}
	}

	if hasGraphQLErrors(envelope.Errors) {
		return &GraphQLError{Op: op, Errors: envelope.Errors}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &TransportError{Op: op, StatusCode: resp.StatusCode, Body: raw, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return nil
}

// hasGraphQLErrors reports whether the raw errors field holds at least one entry.
func hasGraphQLErrors(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Not an array — some servers put an object here. Treat any
		// non-null value as an error signal rather than swallowing it.
		return true
	}
	return len(entries) > 0
}
