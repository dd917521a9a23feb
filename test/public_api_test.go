package test

import (
	"context"
	"net/http"
	"testing"

	"github.com/MrEthical07/folioauth"
	"github.com/MrEthical07/folioauth/middleware"
)

// This test guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = folioauth.New
	_ = folioauth.DefaultConfig

	var _ *folioauth.Engine
	var _ folioauth.Config
	var _ folioauth.Result
	var _ folioauth.LogoutResult
	var _ folioauth.LoginRequest
	var _ folioauth.CredentialStore
	var _ folioauth.SessionStore
	var _ folioauth.LockoutStore
	var _ folioauth.Blacklist
	var _ folioauth.AuditSink

	var _ folioauth.SessionStore = folioauth.NewSQLSessionStore(nil)
	var _ folioauth.Blacklist = folioauth.NewMemoryBlacklist(nil)
	var _ folioauth.Blacklist = folioauth.NewRedisBlacklist(nil, "")

	var _ error = folioauth.ErrUserNotFound
	var _ error = folioauth.ErrSessionNotFound
	var _ error = folioauth.ErrLockoutUnavailable
	var _ error = folioauth.ErrBlacklistUnavailable

	var _ func(*folioauth.Engine, string) func(http.Handler) http.Handler = middleware.Guard
	var _ func(...folioauth.Role) func(http.Handler) http.Handler = middleware.RequireRole

	var _ func(*folioauth.Engine, context.Context, folioauth.LoginRequest) folioauth.Result = (*folioauth.Engine).Login
	var _ func(*folioauth.Engine, context.Context, string) folioauth.Result = (*folioauth.Engine).Refresh
	var _ func(*folioauth.Engine, context.Context, folioauth.LogoutRequest) folioauth.LogoutResult = (*folioauth.Engine).Logout
	var _ func(*folioauth.Engine, context.Context, string) folioauth.Result = (*folioauth.Engine).Authenticate
}
