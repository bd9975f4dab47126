package soundwave

import (
	"errors"
	"time"

	"github.com/MrEthical07/soundwave/realtime"
	"github.com/MrEthical07/soundwave/session"
)

// Config holds every tunable of the [Engine]. Obtain defaults with
// [DefaultConfig] and adjust fields before passing it to [Builder.WithConfig].
type Config struct {
	Session  SessionConfig
	Realtime RealtimeConfig
	Token    TokenConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the per-user session set in Redis.
type SessionConfig struct {
	// RedisPrefix namespaces the session hashes: "<prefix>:<userID>".
	RedisPrefix string
	// TTL is the shared lifetime of a user's whole session set.
	TTL time.Duration
	// RevokeOnDeactivation clears the session set when an inactive account is
	// detected, in addition to the forced-logout broadcast.
	RevokeOnDeactivation bool
	// DefaultProfile is used when an account carries no current profile.
	DefaultProfile string
}

/*
====================================
REALTIME CONFIG
====================================
*/

// RealtimeConfig controls the fan-out gateway the Engine builds around a
// [realtime.Publisher].
type RealtimeConfig struct {
	QueueSize      int
	Workers        int
	PublishTimeout time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls bearer access tokens. Tokens are disabled when no key
// material is configured.
type TokenConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

// Enabled reports whether any key material is configured.
func (c TokenConfig) Enabled() bool {
	return len(c.PrivateKey) > 0 || len(c.PublicKey) > 0
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults: 24h shared session TTL,
// deactivation keeps the session set, metrics on, audit off.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:          session.DefaultPrefix,
			TTL:                  session.DefaultTTL,
			RevokeOnDeactivation: false,
			DefaultProfile:       session.ProfileUser,
		},
		Realtime: RealtimeConfig{
			QueueSize:      1024,
			Workers:        4,
			PublishTimeout: 5 * time.Second,
		},
		Token: TokenConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "soundwave",
			Leeway:        5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c RealtimeConfig) gatewayConfig() realtime.Config {
	return realtime.Config{
		QueueSize:      c.QueueSize,
		Workers:        c.Workers,
		PublishTimeout: c.PublishTimeout,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.TTL < time.Second {
		return errors.New("Session TTL must be >= 1s")
	}
	if !session.ValidProfile(c.Session.DefaultProfile) {
		return errors.New("Session DefaultProfile must be USER or ARTIST")
	}

	// Realtime
	if c.Realtime.QueueSize <= 0 {
		return errors.New("Realtime QueueSize must be > 0")
	}
	if c.Realtime.Workers <= 0 || c.Realtime.Workers > 256 {
		return errors.New("Realtime Workers must be in 1..256")
	}
	if c.Realtime.PublishTimeout <= 0 {
		return errors.New("Realtime PublishTimeout must be > 0")
	}

	// Token
	if c.Token.Enabled() {
		if c.Token.AccessTTL <= 0 {
			return errors.New("Token AccessTTL must be > 0")
		}
		switch c.Token.SigningMethod {
		case "hs256":
			if len(c.Token.PrivateKey) < 32 {
				return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
			}
		case "ed25519":
			if len(c.Token.PublicKey) == 0 {
				return errors.New("ed25519 requires PublicKey")
			}
		default:
			return errors.New("unsupported Token signing method")
		}
		if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
			return errors.New("Token Leeway must be in 0..2m")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
