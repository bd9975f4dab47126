package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/soundwave/internal/logging"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides: SOUNDWAVE_HTTP_ADDR,
// SOUNDWAVE_REDIS_ADDR, SOUNDWAVE_TOKEN_SECRET and so on.
const EnvPrefix = "SOUNDWAVE"

type HTTPConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// RedisConfig selects the session store. Embedded runs an in-process
// miniredis and is meant for local development only.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Embedded bool   `mapstructure:"embedded" yaml:"embedded"`
}

type SeedUser struct {
	ID      string `mapstructure:"id" yaml:"id"`
	Active  bool   `mapstructure:"active" yaml:"active"`
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// AccountsConfig selects the system of record: memory, sqlite or postgres.
type AccountsConfig struct {
	Driver     string     `mapstructure:"driver" yaml:"driver"`
	DSN        string     `mapstructure:"dsn" yaml:"dsn"`
	Schema     string     `mapstructure:"schema" yaml:"schema"`
	Table      string     `mapstructure:"table" yaml:"table"`
	IDType     string     `mapstructure:"id_type" yaml:"id_type"`
	MaxConns   int32      `mapstructure:"max_conns" yaml:"max_conns"`
	SQLitePath string     `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Seed       []SeedUser `mapstructure:"seed" yaml:"seed"`
}

type SessionConfig struct {
	TTL                  time.Duration `mapstructure:"ttl" yaml:"ttl"`
	RedisPrefix          string        `mapstructure:"redis_prefix" yaml:"redis_prefix"`
	RevokeOnDeactivation bool          `mapstructure:"revoke_on_deactivation" yaml:"revoke_on_deactivation"`
	ProtectedRoutes      []string      `mapstructure:"protected_routes" yaml:"protected_routes"`
}

type TokenConfig struct {
	Secret    string        `mapstructure:"secret" yaml:"secret"`
	Issuer    string        `mapstructure:"issuer" yaml:"issuer"`
	AccessTTL time.Duration `mapstructure:"access_ttl" yaml:"access_ttl"`
}

type PusherConfig struct {
	AppID   string `mapstructure:"app_id" yaml:"app_id"`
	Key     string `mapstructure:"key" yaml:"key"`
	Secret  string `mapstructure:"secret" yaml:"secret"`
	Cluster string `mapstructure:"cluster" yaml:"cluster"`
}

// RealtimeConfig controls fan-out. With RedisRelay set every instance
// publishes through Redis and relays into its local websocket hub.
type RealtimeConfig struct {
	Websocket      bool          `mapstructure:"websocket" yaml:"websocket"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	RedisRelay     bool          `mapstructure:"redis_relay" yaml:"redis_relay"`
	RelayPrefix    string        `mapstructure:"relay_prefix" yaml:"relay_prefix"`
	QueueSize      int           `mapstructure:"queue_size" yaml:"queue_size"`
	Workers        int           `mapstructure:"workers" yaml:"workers"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout"`
	Pusher         PusherConfig  `mapstructure:"pusher" yaml:"pusher"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// RateLimitConfig sets per-client-IP budgets per minute. Zero disables.
type RateLimitConfig struct {
	LoginPerMinute    int `mapstructure:"login_per_minute" yaml:"login_per_minute"`
	RealtimePerMinute int `mapstructure:"realtime_per_minute" yaml:"realtime_per_minute"`
}

type DevConfig struct {
	Login bool `mapstructure:"login" yaml:"login"`
}

// Config is the soundwave-sessiond configuration.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Accounts  AccountsConfig  `mapstructure:"accounts" yaml:"accounts"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Token     TokenConfig     `mapstructure:"token" yaml:"token"`
	Realtime  RealtimeConfig  `mapstructure:"realtime" yaml:"realtime"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Audit     AuditConfig     `mapstructure:"audit" yaml:"audit"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Dev       DevConfig       `mapstructure:"dev" yaml:"dev"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.embedded", false)

	v.SetDefault("accounts.driver", "memory")
	v.SetDefault("accounts.dsn", "")
	v.SetDefault("accounts.schema", "public")
	v.SetDefault("accounts.table", "users")
	v.SetDefault("accounts.id_type", "text")
	v.SetDefault("accounts.max_conns", 10)
	v.SetDefault("accounts.sqlite_path", "soundwave-accounts.db")
	v.SetDefault("accounts.seed", []map[string]any{})

	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.redis_prefix", "user_sessions")
	v.SetDefault("session.revoke_on_deactivation", false)
	v.SetDefault("session.protected_routes", []string{
		"GET /session/active",
		"POST /session/profile",
		"POST /session/logout",
		"POST /session/logout-all",
	})

	v.SetDefault("token.secret", "")
	v.SetDefault("token.issuer", "soundwave")
	v.SetDefault("token.access_ttl", 15*time.Minute)

	v.SetDefault("realtime.websocket", true)
	v.SetDefault("realtime.allowed_origins", []string{})
	v.SetDefault("realtime.redis_relay", false)
	v.SetDefault("realtime.relay_prefix", "soundwave:rt:")
	v.SetDefault("realtime.queue_size", 1024)
	v.SetDefault("realtime.workers", 4)
	v.SetDefault("realtime.publish_timeout", 5*time.Second)
	v.SetDefault("realtime.pusher.app_id", "")
	v.SetDefault("realtime.pusher.key", "")
	v.SetDefault("realtime.pusher.secret", "")
	v.SetDefault("realtime.pusher.cluster", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("rate_limit.login_per_minute", 20)
	v.SetDefault("rate_limit.realtime_per_minute", 60)
	v.SetDefault("dev.login", false)
}

// LoadConfig reads the optional YAML file at path, then applies SOUNDWAVE_*
// environment overrides. An empty path uses defaults and environment only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("http.addr must be set")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return errors.New("http.shutdown_timeout must be > 0")
	}
	if err := logging.Validate(logging.Options{Level: c.Log.Level, Format: c.Log.Format}); err != nil {
		return err
	}
	if !c.Redis.Embedded && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr must be set unless redis.embedded is enabled")
	}

	switch c.Accounts.Driver {
	case "memory":
	case "sqlite":
		if c.Accounts.SQLitePath == "" {
			return errors.New("accounts.sqlite_path must be set for the sqlite driver")
		}
	case "postgres":
		if c.Accounts.DSN == "" {
			return errors.New("accounts.dsn must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown accounts.driver %q (valid: memory, sqlite, postgres)", c.Accounts.Driver)
	}
	for _, u := range c.Accounts.Seed {
		if strings.TrimSpace(u.ID) == "" {
			return errors.New("accounts.seed entries need an id")
		}
	}

	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be > 0")
	}
	if c.Token.Secret != "" && len(c.Token.Secret) < 32 {
		return errors.New("token.secret must be at least 32 bytes")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if c.RateLimit.LoginPerMinute < 0 || c.RateLimit.RealtimePerMinute < 0 {
		return errors.New("rate_limit budgets must be >= 0")
	}
	if c.Realtime.RedisRelay && !c.Realtime.Websocket {
		return errors.New("realtime.redis_relay requires realtime.websocket")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	out := c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "REDACTED"
	}
	out.Redis.Password = mask(c.Redis.Password)
	out.Accounts.DSN = mask(c.Accounts.DSN)
	out.Token.Secret = mask(c.Token.Secret)
	out.Realtime.Pusher.Secret = mask(c.Realtime.Pusher.Secret)
	return out
}

// YAML renders the redacted config in the file format LoadConfig reads.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
