// Package api is the portal GraphQL client.
//
// The portal exposes exactly two operations this tool needs: a cursor-paginated
// flow-execution search query and a resubmit mutation. Both are plain GraphQL
// documents POSTed to a single endpoint with a bearer token; there is no
// schema introspection, code generation, or general GraphQL tooling here.
//
// # Error Taxonomy
//
// Every network interaction classifies its failure into one of:
//
//   - AuthError: the credential exchange failed. Carries the raw upstream
//     payload so the operator sees exactly what the auth server said.
//   - TransportError: the HTTP request itself failed (connection, timeout,
//     non-2xx status, undecodable body). Always fatal for the run.
//   - GraphQLError: the response arrived but its errors array was non-empty.
//     Carries the raw errors payload, never a summary.
//
// The resubmit mutation additionally distinguishes an application-level
// rejection (resubmitted=false or a GraphQL errors payload) from transport
// failure; see Outcome.
//
// # Tokens
//
// Callers never hold a bearer token directly. A TokenSource is consulted
// before every request, so token refresh policy lives in one place
// (CachingTokenSource) instead of being assumed valid for the whole run.
package api
