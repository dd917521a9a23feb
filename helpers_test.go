package folioauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/folioauth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-password-123"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memCredentials is a CredentialStore that counts lookups.
type memCredentials struct {
	mu          sync.Mutex
	admins      map[string]AdminRecord
	byNameCalls int
	byIDCalls   int
	hashUpdates map[int64]string
	lookupErr   error
}

func newMemCredentials() *memCredentials {
	return &memCredentials{admins: map[string]AdminRecord{}, hashUpdates: map[int64]string{}}
}

func (m *memCredentials) add(t testing.TB, id int64, username string, role Role, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[username] = AdminRecord{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		Active:       active,
	}
}

func (m *memCredentials) setActive(username string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.admins[username]
	rec.Active = active
	m.admins[username] = rec
}

func (m *memCredentials) GetByUsername(_ context.Context, username string) (AdminRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byNameCalls++
	if m.lookupErr != nil {
		return AdminRecord{}, m.lookupErr
	}
	rec, ok := m.admins[username]
	if !ok {
		return AdminRecord{}, ErrUserNotFound
	}
	return rec, nil
}

func (m *memCredentials) GetByID(_ context.Context, id int64) (AdminRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byIDCalls++
	for _, rec := range m.admins {
		if rec.ID == id {
			return rec, nil
		}
	}
	return AdminRecord{}, ErrUserNotFound
}

func (m *memCredentials) lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byNameCalls
}

// updatingCredentials adds PasswordHashUpdater.
type updatingCredentials struct {
	*memCredentials
}

func (u updatingCredentials) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hashUpdates[id] = hash
	return nil
}

// memSessions is a SessionStore whose DeleteByToken reports affected rows like the SQL store.
type memSessions struct {
	mu        sync.Mutex
	rows      map[string]session.Session
	nextID    int64
	createErr error
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[string]session.Session{}}
}

func (m *memSessions) Create(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	s.ID = m.nextID
	m.rows[s.RefreshToken] = *s
	return nil
}

func (m *memSessions) FindByToken(_ context.Context, token string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[token]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) DeleteByToken(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[token]; !ok {
		return false, nil
	}
	delete(m.rows, token)
	return true, nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.rows {
		if s.Expired(now) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) get(token string) (session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[token]
	return s, ok
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// recordingSink keeps emitted audit events in order.
type recordingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *recordingSink) Emit(_ context.Context, e AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func (s *recordingSink) last() AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return AuditEvent{}
	}
	return s.events[len(s.events)-1]
}

type testEnv struct {
	engine      *Engine
	clock       *testClock
	credentials *memCredentials
	sessions    *memSessions
	blacklist   Blacklist
	audit       *recordingSink
	redis       *miniredis.Miniredis
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Audit.Enabled = false
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.UpgradeOnLogin = false
	return cfg
}

func newTestEnv(t testing.TB, mutate func(*Config)) *testEnv {
	t.Helper()

	mr, rdb := startRedis(t)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		clock:       newTestClock(),
		credentials: newMemCredentials(),
		sessions:    newMemSessions(),
		audit:       &recordingSink{},
		redis:       mr,
	}
	env.credentials.add(t, 1, "alice", RoleAdmin, true)
	env.credentials.add(t, 2, "bob", RoleEditor, true)
	env.credentials.add(t, 3, "carol", RoleEditor, false)
	env.blacklist = NewMemoryBlacklist(env.clock.Now)

	engine, err := New().
		WithConfig(cfg).
		WithCredentialStore(env.credentials).
		WithSessionStore(env.sessions).
		WithLockoutStore(NewRedisLockoutStore(rdb, "test:rl:")).
		WithBlacklist(env.blacklist).
		WithAuditSink(env.audit).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func startRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func loginReq(username, password string) LoginRequest {
	return LoginRequest{
		Username:   username,
		Password:   password,
		CSRFToken:  "csrf",
		CSRFCookie: "csrf",
	}
}

func ipContext(ip string) context.Context {
	return WithUserAgent(WithClientIP(context.Background(), ip), "test-agent")
}

func (e *testEnv) mustLogin(t testing.TB, username string) Tokens {
	t.Helper()
	res := e.engine.Login(ipContext("203.0.113.1"), loginReq(username, testPassword))
	if !res.OK() {
		t.Fatalf("login %s failed: %v (%v)", username, res.Kind, res.Err)
	}
	return res.Tokens
}

var errBackend = errors.New("backend down")
