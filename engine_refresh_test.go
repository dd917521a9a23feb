package folioauth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.mustLogin(t, "alice")

	env.clock.Advance(10 * time.Minute)
	res := env.engine.Refresh(context.Background(), first.RefreshToken)
	if !res.OK() {
		t.Fatalf("refresh failed: %v (%v)", res.Kind, res.Err)
	}
	if res.Tokens.RefreshToken == first.RefreshToken || res.Tokens.AccessToken == first.AccessToken {
		t.Fatalf("expected a new token pair")
	}
	if res.User.Username != "alice" {
		t.Fatalf("unexpected user %+v", res.User)
	}

	if _, ok := env.sessions.get(first.RefreshToken); ok {
		t.Fatalf("old session row must be gone")
	}
	s, ok := env.sessions.get(res.Tokens.RefreshToken)
	if !ok {
		t.Fatalf("new session row missing")
	}
	if want := env.clock.Now().Add(7 * 24 * time.Hour); !s.ExpiresAt.Equal(want) {
		t.Fatalf("expected new session expiry %v, got %v", want, s.ExpiresAt)
	}
	if env.sessions.count() != 1 {
		t.Fatalf("expected one session, got %d", env.sessions.count())
	}
	if got := env.audit.last().Action; got != AuditTokenRefresh {
		t.Fatalf("expected %s, got %s", AuditTokenRefresh, got)
	}

	again := env.engine.Refresh(context.Background(), first.RefreshToken)
	if again.Kind != KindSessionNotFound {
		t.Fatalf("expected reuse to fail with SessionNotFound, got %v", again.Kind)
	}
}

func TestRefreshAfterRememberMeUsesStandardLifetime(t *testing.T) {
	env := newTestEnv(t, nil)

	req := loginReq("alice", testPassword)
	req.RememberMe = true
	login := env.engine.Login(ipContext("1.1.1.1"), req)
	if !login.OK() {
		t.Fatalf("login failed: %v", login.Kind)
	}

	res := env.engine.Refresh(context.Background(), login.Tokens.RefreshToken)
	if !res.OK() {
		t.Fatalf("refresh failed: %v", res.Kind)
	}
	if want := env.clock.Now().Add(7 * 24 * time.Hour); !res.Tokens.RefreshExpiresAt.Equal(want) {
		t.Fatalf("expected 7d refresh lifetime, got %v", res.Tokens.RefreshExpiresAt)
	}
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t, nil)
	tokens := env.mustLogin(t, "alice")

	const callers = 16
	results := make([]Result, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = env.engine.Refresh(context.Background(), tokens.RefreshToken)
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, res := range results {
		switch res.Kind {
		case KindNone:
			winners++
		case KindSessionNotFound:
		default:
			t.Fatalf("unexpected refresh outcome %v (%v)", res.Kind, res.Err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if env.sessions.count() != 1 {
		t.Fatalf("expected one live session, got %d", env.sessions.count())
	}
}

func TestRefreshMissingToken(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.engine.Refresh(context.Background(), "")
	if res.Kind != KindMissingToken || StatusCode(res.Kind) != 400 {
		t.Fatalf("expected MissingToken/400, got %v/%d", res.Kind, StatusCode(res.Kind))
	}
}

func TestRefreshRejectsGarbageAndAccessTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	tokens := env.mustLogin(t, "alice")

	for _, tok := range []string{"not-a-jwt", tokens.AccessToken} {
		if res := env.engine.Refresh(context.Background(), tok); res.Kind != KindInvalidToken {
			t.Fatalf("expected InvalidToken, got %v", res.Kind)
		}
	}
	if _, ok := env.sessions.get(tokens.RefreshToken); !ok {
		t.Fatalf("rejected tokens must not touch the real session")
	}
}

func TestRefreshExpiredTokenDeletesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	tokens := env.mustLogin(t, "alice")

	env.clock.Advance(8 * 24 * time.Hour)
	res := env.engine.Refresh(context.Background(), tokens.RefreshToken)
	if res.Kind != KindInvalidToken {
		t.Fatalf("expected InvalidToken, got %v", res.Kind)
	}
	if env.sessions.count() != 0 {
		t.Fatalf("expired token's session must be removed")
	}
}

func TestRefreshExpiredSessionRow(t *testing.T) {
	env := newTestEnv(t, nil)
	tokens := env.mustLogin(t, "alice")

	env.sessions.mu.Lock()
	row := env.sessions.rows[tokens.RefreshToken]
	row.ExpiresAt = env.clock.Now().Add(-time.Second)
	env.sessions.rows[tokens.RefreshToken] = row
	env.sessions.mu.Unlock()

	res := env.engine.Refresh(context.Background(), tokens.RefreshToken)
	if res.Kind != KindSessionExpired {
		t.Fatalf("expected SessionExpired, got %v", res.Kind)
	}
	if env.sessions.count() != 0 {
		t.Fatalf("expired session must be removed")
	}
}

func TestRefreshInactiveUser(t *testing.T) {
	env := newTestEnv(t, nil)
	tokens := env.mustLogin(t, "bob")

	env.credentials.setActive("bob", false)
	res := env.engine.Refresh(context.Background(), tokens.RefreshToken)
	if res.Kind != KindUserInactive {
		t.Fatalf("expected UserInactive, got %v", res.Kind)
	}
	if env.sessions.count() != 0 {
		t.Fatalf("inactive user's session must be removed")
	}
	if ev := env.audit.last(); ev.Action != AuditTokenRefreshFailed || ev.AdminID != 2 {
		t.Fatalf("unexpected audit event %+v", ev)
	}
}

func TestRefreshAfterLogoutFails(t *testing.T) {
	env := newTestEnv(t, nil)
	tokens := env.mustLogin(t, "alice")

	env.engine.Logout(context.Background(), LogoutRequest{RefreshToken: tokens.RefreshToken})
	if res := env.engine.Refresh(context.Background(), tokens.RefreshToken); res.Kind != KindSessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", res.Kind)
	}
}
