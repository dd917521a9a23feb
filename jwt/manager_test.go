package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newHSManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Issuer:        "folioauth",
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

var alice = Identity{UserID: 7, Username: "alice", Email: "alice@example.com", Role: "editor"}

func TestIssueAccessRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	tok, err := m.IssueAccess(alice)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	claims, err := m.VerifyAccess(tok)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Identity() != alice {
		t.Fatalf("unexpected identity: %+v", claims.Identity())
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected default access lifetime of 1h, got %v", got)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestIssueRefreshLifetimeAndType(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	tok, err := m.IssueRefresh(alice, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	claims, err := m.VerifyRefresh(tok)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if want := clock.now.Add(30 * 24 * time.Hour); !claims.ExpiresAt.Time.Equal(want) {
		t.Fatalf("expected exp %v, got %v", want, claims.ExpiresAt.Time)
	}
	if _, err := m.VerifyAccess(tok); !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected refresh token to be rejected as access token, got %v", err)
	}
	if _, err := m.IssueRefresh(alice, 0); err == nil {
		t.Fatal("expected zero lifetime to be rejected")
	}
}

func TestTokensIssuedInSameSecondDiffer(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	a, _ := m.IssueRefresh(alice, time.Hour)
	b, _ := m.IssueRefresh(alice, time.Hour)
	if a == b {
		t.Fatal("expected distinct refresh tokens")
	}
}

func TestVerifyExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	tok, err := m.IssueAccess(alice)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	clock.now = clock.now.Add(time.Hour + time.Second)
	if _, err := m.Verify(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyInvalidSignature(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	other, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("another-secret-another-secret-xx"),
		Issuer:        "folioauth",
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	forged, err := other.IssueAccess(alice)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := m.Verify(forged); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	tok, _ := m.IssueAccess(alice)
	parts := strings.Split(tok, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := m.Verify(tampered); err == nil {
		t.Fatal("expected tampered payload to fail")
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	claims := Claims{UserID: 1, Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "folioauth",
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Verify(tok); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	claims := Claims{UserID: 1, Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}
	tok, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if _, err := m.Verify(tok); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for wrong issuer, got %v", err)
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	tok, err := m.IssueAccess(alice)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := m.VerifyAccess(tok); err != nil {
		t.Fatalf("verify access: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("short")}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := NewManager(Config{SigningMethod: "rs512", PrivateKey: testSecret}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: time.Hour}); err == nil {
		t.Fatal("expected large leeway to be rejected")
	}
}

func TestRemainingFlooredAtZero(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := &Claims{RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(now.Add(120 * time.Second))}}
	if got := c.Remaining(now); got != 120*time.Second {
		t.Fatalf("expected 120s, got %v", got)
	}
	if got := c.Remaining(now.Add(5 * time.Minute)); got != 0 {
		t.Fatalf("expected 0 after expiry, got %v", got)
	}
}
