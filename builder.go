package soundwave

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/soundwave/internal"
	internalaudit "github.com/MrEthical07/soundwave/internal/audit"
	"github.com/MrEthical07/soundwave/internal/flows"
	"github.com/MrEthical07/soundwave/jwt"
	"github.com/MrEthical07/soundwave/realtime"
	"github.com/MrEthical07/soundwave/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during startup, call Build
// once, then discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts    AccountProvider
	publisher   realtime.Publisher
	broadcaster Broadcaster
	auditSink   AuditSink
	logger      *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session store. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountProvider sets the system of record used for the live account
// status check. Required.
func (b *Builder) WithAccountProvider(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

// WithPublisher sets the push transport. The Engine wraps it in a
// [realtime.Gateway] sized by Config.Realtime and closes it on [Engine.Close].
func (b *Builder) WithPublisher(p realtime.Publisher) *Builder {
	b.publisher = p
	return b
}

// WithBroadcaster replaces the gateway entirely. The caller owns its
// lifecycle. Takes precedence over WithPublisher.
func (b *Builder) WithBroadcaster(bc Broadcaster) *Builder {
	b.broadcaster = bc
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.logger = log
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account provider required")
	}

	log := b.logger
	if log == nil {
		log = slog.Default()
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		log:      log,
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.TTL),
		accounts: b.accounts,
		metrics:  NewMetrics(cfg.Metrics),
		now:      time.Now,
	}

	// -------- FAN-OUT --------
	if b.broadcaster != nil {
		engine.broadcaster = b.broadcaster
	} else {
		pub := b.publisher
		if pub == nil {
			log.Warn("session.build.no_publisher", "detail", "control messages will be discarded")
			pub = realtime.NopPublisher{}
		}
		engine.gateway = realtime.NewGateway(pub, cfg.Realtime.gatewayConfig(), log)
		engine.broadcaster = engine.gateway
	}

	// -------- TOKENS --------
	if cfg.Token.Enabled() {
		jm, err := jwt.NewManager(jwt.Config{
			AccessTTL:     cfg.Token.AccessTTL,
			SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
			PublicKey:     cloneBytes(cfg.Token.PublicKey),
			Issuer:        cfg.Token.Issuer,
			Audience:      cfg.Token.Audience,
			Leeway:        cfg.Token.Leeway,
			KeyID:         cfg.Token.KeyID,
		})
		if err != nil {
			engine.closeGateway()
			return nil, err
		}
		engine.tokens = jm
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine.flows = engine.buildFlowDeps(internal.NewSessionID)

	b.built = true
	return engine, nil
}

func (e *Engine) buildFlowDeps(newID func() (string, error)) flows.Deps {
	validate := flows.ValidateDeps{
		Sessions: e.sessions,
		Now:      e.now,
		Observe: func(d time.Duration) {
			e.metrics.Observe(MetricValidateLatency, d)
		},
	}

	return flows.Deps{
		Create: flows.CreateDeps{
			Sessions:     e.sessions,
			NewSessionID: newID,
			Now:          e.now,
		},
		Validate: validate,
		Profile: flows.ProfileDeps{
			Sessions: e.sessions,
			Now:      e.now,
		},
		Check: flows.CheckDeps{
			Validate: func(ctx context.Context, userID, sessionID string) (bool, error) {
				return flows.RunValidateSession(ctx, userID, sessionID, validate)
			},
			LookupAccount: e.lookupAccount,
			OnDeactivated: e.onDeactivated,
		},
		Deactivation: flows.DeactivationDeps{
			Broadcast:     e.broadcastForceLogout(ControlAccountDeactivated, "account deactivated"),
			Revoke:        e.config.Session.RevokeOnDeactivation,
			ClearSessions: e.sessions.Clear,
		},
		Logout: flows.LogoutDeps{
			Sessions: e.sessions,
			Notify:   e.broadcastForceLogout(ControlSessionsRevoked, "logged out everywhere"),
		},
		Audio: flows.AudioDeps{
			Broadcast: func(ctx context.Context, userID, currentSessionID string) {
				e.broadcaster.Broadcast(ctx, userID, EventAudioControl, AudioControlPayload{
					Type:             ControlStopOtherSessions,
					CurrentSessionID: currentSessionID,
				})
			},
		},
	}
}
