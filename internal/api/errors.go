package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AuthError reports a failed credential exchange. RawBody preserves the
// upstream payload verbatim so the operator sees the auth server's own
// explanation, not a paraphrase.
type AuthError struct {
	StatusCode int
	RawBody    []byte
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	if len(e.RawBody) > 0 {
		return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.RawBody)
	}
	return fmt.Sprintf("authentication failed (status %d)", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError reports an HTTP-level failure: the request never produced a
// usable GraphQL response. Always fatal for the run.
type TransportError struct {
	// Op names the operation that failed ("search", "resubmit", "token").
	Op string
	// StatusCode is the HTTP status, or 0 when the request never completed.
	StatusCode int
	// Body holds the response body when one was read.
	Body []byte
	Err  error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
	case len(e.Body) > 0:
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// GraphQLError reports a response whose errors array was non-empty.
// Errors is the raw JSON errors payload, surfaced in full.
type GraphQLError struct {
	Op     string
	Errors json.RawMessage
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("%s: graphql errors: %s", e.Op, e.Errors)
}

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsGraphQLError reports whether err is (or wraps) a GraphQLError.
func IsGraphQLError(err error) bool {
	var ge *GraphQLError
	return errors.As(err, &ge)
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
