package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/soundwave"
	"github.com/MrEthical07/soundwave/realtime"
	"github.com/coder/websocket"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func devConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.Redis.Embedded = true
	cfg.Dev.Login = true
	cfg.Token.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Accounts.Seed = []SeedUser{
		{ID: "u1", Active: true},
		{ID: "u2", Active: true, Profile: "ARTIST"},
	}
	return cfg
}

func startApp(t *testing.T, cfg Config) (*App, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app, err := New(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(app.Close)
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return app, srv
}

type loginResponse struct {
	SessionID   string `json:"sessionId"`
	AccessToken string `json:"accessToken"`
}

func login(t *testing.T, srv *httptest.Server, userID string) loginResponse {
	t.Helper()
	resp, err := http.Post(srv.URL+"/session/login", "application/json",
		strings.NewReader(`{"userId":"`+userID+`"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out
}

func dialRealtime(t *testing.T, ctx context.Context, app *App, srv *httptest.Server, token, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/realtime?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	deadline := time.Now().Add(2 * time.Second)
	for app.hub.Subscribers(realtime.ChannelName(userID)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("websocket client never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func audioPlay(t *testing.T, srv *httptest.Server, token, userID, sessionID string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"userId": userID, "sessionId": sessionID})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/session/handle-audio-play", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("audio play: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("audio play status %d", resp.StatusCode)
	}
}

func readControl(t *testing.T, ctx context.Context, conn *websocket.Conn) (realtime.Message, soundwave.AudioControlPayload) {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg realtime.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	var payload soundwave.AudioControlPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return msg, payload
}

func TestAudioPlayReachesOtherDevice(t *testing.T) {
	app, srv := startApp(t, devConfig(t))

	phone := login(t, srv, "u1")
	laptop := login(t, srv, "u1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialRealtime(t, ctx, app, srv, laptop.AccessToken, "u1")

	audioPlay(t, srv, phone.AccessToken, "u1", phone.SessionID)

	msg, payload := readControl(t, ctx, conn)
	if msg.Event != soundwave.EventAudioControl || msg.Channel != "user-u1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if payload.Type != soundwave.ControlStopOtherSessions || payload.CurrentSessionID != phone.SessionID {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestAudioPlayThroughRedisRelay(t *testing.T) {
	cfg := devConfig(t)
	cfg.Realtime.RedisRelay = true
	app, srv := startApp(t, cfg)

	phone := login(t, srv, "u2")
	laptop := login(t, srv, "u2")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialRealtime(t, ctx, app, srv, laptop.AccessToken, "u2")

	audioPlay(t, srv, phone.AccessToken, "u2", phone.SessionID)

	_, payload := readControl(t, ctx, conn)
	if payload.CurrentSessionID != phone.SessionID {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestRealtimeRejectsMissingToken(t *testing.T) {
	_, srv := startApp(t, devConfig(t))

	resp, err := http.Get(srv.URL + "/realtime")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := startApp(t, devConfig(t))
	login(t, srv, "u1")

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "soundwave_session_created_total 1") {
		t.Fatalf("expected session counter in metrics output")
	}
}

func TestSQLiteAccountsDriver(t *testing.T) {
	cfg := devConfig(t)
	cfg.Accounts.Driver = "sqlite"
	cfg.Accounts.SQLitePath = filepath.Join(t.TempDir(), "accounts.db")
	cfg.Accounts.Seed = append(cfg.Accounts.Seed, SeedUser{ID: "gone", Active: false})
	_, srv := startApp(t, cfg)

	login(t, srv, "u1")

	resp, err := http.Post(srv.URL+"/session/login", "application/json", strings.NewReader(`{"userId":"gone"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for inactive seeded account, got %d", resp.StatusCode)
	}
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := devConfig(t)
	cfg.Redis.Embedded = false
	cfg.Redis.Addr = "127.0.0.1:1"

	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected redis ping failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := devConfig(t)
	cfg.HTTP.Addr = "127.0.0.1:0"

	app, err := New(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
