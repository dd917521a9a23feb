// Package session stores refresh-token sessions in the relational datastore.
//
// A [Session] row is created on login and on every refresh, and deleted on logout, on rotation,
// or when the orchestrator finds it expired. [Store.DeleteByToken] reports whether it removed a
// row, which is what makes refresh tokens single-use under concurrency.
package session
