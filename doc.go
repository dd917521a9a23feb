// Package folioauth is the authentication core of a portfolio CMS admin area: login with
// brute-force lockout, single-use refresh-token rotation, logout with token blacklisting, and
// access-token authentication for guarded routes.
//
// Wire an [Engine] with [New]:
//
//	engine, err := folioauth.New().
//		WithConfig(cfg).
//		WithCredentialStore(folioauth.NewSQLCredentialStore(db)).
//		WithSessionStore(folioauth.NewSQLSessionStore(db)).
//		WithLockoutStore(folioauth.NewSQLLockoutStore(db)).
//		WithBlacklist(folioauth.NewRedisBlacklist(rdb, "")).
//		WithAuditSink(folioauth.NewSQLAuditSink(db, logger)).
//		WithLogger(logger).
//		Build()
//
// Engine methods never return Go errors for authentication failures. They return a [Result]
// whose [Kind] the HTTP layer turns into a status code with [StatusCode] and a generic client
// message with [Message].
//
// # Architecture boundaries
//
// This package is the public surface. Flow orchestration lives in internal/flows, persistence in
// session, blacklist, internal/limiters and internal/stores. HTTP transport lives in
// internal/httpapi and middleware.
//
// # What this package must NOT do
//
//   - Return password hashes or raw datastore errors to callers of Login or Refresh.
//   - Set cookies or write HTTP responses.
//   - Keep lockout state in package globals.
package folioauth
