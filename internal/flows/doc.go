// Package flows contains the login, refresh, logout and authenticate state machines.
//
// Each Run* function takes a typed dependency struct of plain functions and returns a result
// value carrying a [Failure] kind instead of an error, so every path can be unit tested with fakes
// and the HTTP layer can map kinds to status codes in one place.
//
// Flow functions never hold state between calls, never import the root package, and perform I/O
// only through their dependencies.
package flows
