// Package middleware adapts folioauth to net/http.
//
// # Guards
//
//   - [Guard] authenticates the access token from a cookie or bearer header and attaches the
//     admin to the request context.
//   - [RequireRole] restricts a route to a set of admin roles.
//
// [RequestID], [Logger] and [ClientInfo] are plumbing for the HTTP server: request ids, one
// structured log line per request, and client IP / User-Agent propagation into the engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine.Authenticate).
//   - Touch session or blacklist storage.
package middleware
