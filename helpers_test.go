package soundwave

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type broadcastCall struct {
	UserID  string
	Event   string
	Payload any
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, userID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{UserID: userID, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) Calls() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastCall(nil), b.calls...)
}

type mockAccounts struct {
	mu    sync.Mutex
	users map[string]User
	err   error
	calls int
}

func (m *mockAccounts) FindUser(_ context.Context, userID string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return User{}, m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockAccounts) setActive(userID string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.IsActive = active
	m.users[userID] = u
}

func (m *mockAccounts) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type testEnv struct {
	engine   *Engine
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	accounts *mockAccounts
	bc       *recordingBroadcaster
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	accounts := &mockAccounts{users: map[string]User{
		"u1": {ID: "u1", IsActive: true, CurrentProfile: "USER", Role: "USER"},
		"u2": {ID: "u2", IsActive: true, CurrentProfile: "ARTIST", Role: "USER"},
	}}
	bc := &recordingBroadcaster{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountProvider(accounts).
		WithBroadcaster(bc).
		WithLogger(quietLogger()).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, rdb: rdb, accounts: accounts, bc: bc}
}

func (env *testEnv) login(t *testing.T, userID string) string {
	t.Helper()
	sid, err := env.engine.CreateSession(context.Background(), env.accounts.users[userID])
	if err != nil {
		t.Fatalf("create session for %s: %v", userID, err)
	}
	return sid
}

// hashSnapshot captures a user's raw session hash for before/after checks.
func (env *testEnv) hashSnapshot(t *testing.T, userID string) (map[string]string, time.Duration) {
	t.Helper()
	key := env.engine.sessions.Key(userID)
	if !env.mr.Exists(key) {
		return map[string]string{}, 0
	}
	fields, err := env.mr.HKeys(key)
	if err != nil {
		t.Fatalf("hkeys: %v", err)
	}
	out := map[string]string{}
	for _, f := range fields {
		out[f] = env.mr.HGet(key, f)
	}
	return out, env.mr.TTL(key)
}
