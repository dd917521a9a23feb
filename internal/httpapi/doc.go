// Package httpapi serves the admin auth endpoints (/csrf, /login, /refresh, /logout, /me) plus
// health probes and Prometheus metrics on a chi router.
//
// Handlers only translate between HTTP and the engine: they read cookies and bodies, call
// folioauth.Engine, and map the result kind to a status code. Token cookies are written only on
// success.
package httpapi
