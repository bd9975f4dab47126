package soundwave

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Session.TTL != 24*time.Hour || cfg.Session.RedisPrefix != "user_sessions" {
		t.Fatalf("unexpected session defaults %+v", cfg.Session)
	}
	if cfg.Session.RevokeOnDeactivation {
		t.Fatalf("deactivation must keep sessions by default")
	}
	if cfg.Token.Enabled() {
		t.Fatalf("tokens must be off without key material")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{"empty prefix", func(c *Config) { c.Session.RedisPrefix = "" }, false},
		{"sub-second ttl", func(c *Config) { c.Session.TTL = time.Millisecond }, false},
		{"artist default profile", func(c *Config) { c.Session.DefaultProfile = "ARTIST" }, true},
		{"unknown default profile", func(c *Config) { c.Session.DefaultProfile = "ADMIN" }, false},
		{"zero queue", func(c *Config) { c.Realtime.QueueSize = 0 }, false},
		{"too many workers", func(c *Config) { c.Realtime.Workers = 1000 }, false},
		{"zero publish timeout", func(c *Config) { c.Realtime.PublishTimeout = 0 }, false},
		{"short hmac key", func(c *Config) { c.Token.PrivateKey = []byte("short") }, false},
		{"hmac key", func(c *Config) { c.Token.PrivateKey = make([]byte, 32) }, true},
		{"bad method", func(c *Config) {
			c.Token.PrivateKey = make([]byte, 32)
			c.Token.SigningMethod = "rs256"
		}, false},
		{"ed25519 without public key", func(c *Config) {
			c.Token.PrivateKey = make([]byte, 64)
			c.Token.SigningMethod = "ed25519"
		}, false},
		{"large leeway", func(c *Config) {
			c.Token.PrivateKey = make([]byte, 32)
			c.Token.Leeway = 3 * time.Minute
		}, false},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected invalid")
			}
		})
	}
}

func TestWithConfigCopiesKeyMaterial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	b := New().WithConfig(cfg)
	cfg.Token.PrivateKey[0] = 'X'

	if b.config.Token.PrivateKey[0] != '0' {
		t.Fatalf("builder config aliased caller's key slice")
	}
}

func TestBuildRequiresDependencies(t *testing.T) {
	if _, err := New().WithAccountProvider(&mockAccounts{}).Build(); err == nil {
		t.Fatalf("expected missing redis error")
	}

	env := newTestEnv(t, nil)
	if _, err := New().WithRedis(env.rdb).Build(); err == nil {
		t.Fatalf("expected missing account provider error")
	}

	b := New().WithRedis(env.rdb).WithAccountProvider(&mockAccounts{}).WithLogger(quietLogger())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected reuse error")
	}
}
