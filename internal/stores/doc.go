// Package stores owns the relational datastore: connection setup, goose migrations, and the
// admin_users and admin_logs tables.
//
// # Design
//
// Every method is one statement over sqlx, written with "?" placeholders and rebound for the
// active driver (modernc sqlite or pgx). Timestamps are written in UTC. Sessions and lockout
// records live in their own packages but share the schema migrated here.
//
// # Architecture boundaries
//
// This package persists rows. It does not hash passwords, compare secrets, or make
// authentication decisions; those belong to the password package and internal/flows.
//
// # What this package must NOT do
//
//   - Import folioauth or any flow package.
//   - Log password hashes or tokens.
package stores
