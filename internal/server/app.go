// Package server wires the soundwave-sessiond runtime: Redis, the account
// store, the Engine, realtime fan-out and the HTTP surface.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/soundwave"
	"github.com/MrEthical07/soundwave/httpapi"
	"github.com/MrEthical07/soundwave/internal/rate"
	"github.com/MrEthical07/soundwave/metrics/export/prometheus"
	"github.com/MrEthical07/soundwave/middleware"
	"github.com/MrEthical07/soundwave/realtime"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// App owns every long-lived resource of the server process.
type App struct {
	cfg Config
	log *slog.Logger

	rdb    redis.UniversalClient
	engine *soundwave.Engine
	hub    *realtime.Hub
	relay  *realtime.RedisRelay
	router *gin.Engine

	// closers run in reverse order on Close.
	closers []func() error
}

// New builds a ready App. On error every resource opened so far is closed.
func New(ctx context.Context, cfg Config, log *slog.Logger) (app *App, err error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openRedis(ctx); err != nil {
		return nil, err
	}

	accounts, closeAccounts, err := openAccounts(ctx, cfg.Accounts, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeAccounts)

	publisher, err := a.buildPublisher()
	if err != nil {
		return nil, err
	}

	engineCfg, err := a.engineConfig()
	if err != nil {
		return nil, err
	}

	b := soundwave.New().
		WithConfig(engineCfg).
		WithRedis(a.rdb).
		WithAccountProvider(accounts).
		WithLogger(log)
	if publisher != nil {
		b = b.WithPublisher(publisher)
	}
	if cfg.Audit.Enabled {
		b = b.WithAuditSink(soundwave.SlogSink{Logger: log.With("component", "audit")})
	}
	engine, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	a.engine = engine
	a.closers = append(a.closers, func() error { engine.Close(); return nil })

	if err := a.buildRouter(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) openRedis(ctx context.Context) error {
	addr := a.cfg.Redis.Addr
	if a.cfg.Redis.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		a.closers = append(a.closers, func() error { mr.Close(); return nil })
		addr = mr.Addr()
		a.log.Warn("redis.embedded", "addr", addr)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	a.rdb = rdb
	a.closers = append(a.closers, rdb.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return nil
}

// buildPublisher picks the push transports. A nil publisher leaves the
// Engine with a no-op transport.
func (a *App) buildPublisher() (realtime.Publisher, error) {
	rt := a.cfg.Realtime
	var pubs realtime.MultiPublisher

	if rt.Websocket {
		a.hub = realtime.NewHub(a.log)
		if rt.RedisRelay {
			pubs = append(pubs, realtime.NewRedisPublisher(a.rdb, rt.RelayPrefix))
			a.relay = realtime.NewRedisRelay(a.rdb, rt.RelayPrefix, a.hub, a.log)
		} else {
			pubs = append(pubs, a.hub)
		}
	}

	pcfg := realtime.PusherConfig{
		AppID:   rt.Pusher.AppID,
		Key:     rt.Pusher.Key,
		Secret:  rt.Pusher.Secret,
		Cluster: rt.Pusher.Cluster,
		Timeout: rt.PublishTimeout,
	}
	if pcfg.Enabled() {
		p, err := realtime.NewPusherPublisher(pcfg)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, p)
		a.log.Info("realtime.pusher.enabled", "cluster", pcfg.Cluster)
	}

	switch len(pubs) {
	case 0:
		return nil, nil
	case 1:
		return pubs[0], nil
	default:
		return pubs, nil
	}
}

func (a *App) engineConfig() (soundwave.Config, error) {
	cfg := soundwave.DefaultConfig()
	cfg.Session.TTL = a.cfg.Session.TTL
	cfg.Session.RedisPrefix = a.cfg.Session.RedisPrefix
	cfg.Session.RevokeOnDeactivation = a.cfg.Session.RevokeOnDeactivation
	cfg.Realtime.QueueSize = a.cfg.Realtime.QueueSize
	cfg.Realtime.Workers = a.cfg.Realtime.Workers
	cfg.Realtime.PublishTimeout = a.cfg.Realtime.PublishTimeout
	cfg.Audit.Enabled = a.cfg.Audit.Enabled
	cfg.Metrics.Enabled = a.cfg.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = a.cfg.Metrics.Enabled

	cfg.Token.Issuer = a.cfg.Token.Issuer
	cfg.Token.AccessTTL = a.cfg.Token.AccessTTL
	switch {
	case a.cfg.Token.Secret != "":
		cfg.Token.PrivateKey = []byte(a.cfg.Token.Secret)
	case a.cfg.Redis.Embedded || a.cfg.Dev.Login:
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return soundwave.Config{}, fmt.Errorf("generate dev token key: %w", err)
		}
		cfg.Token.PrivateKey = key
		a.log.Warn("token.ephemeral_key", "reason", "no token.secret in development mode")
	default:
		a.log.Warn("token.disabled", "reason", "token.secret not set; bearer routes will reject every request")
	}
	return cfg, nil
}

func (a *App) buildRouter() error {
	matcher, err := middleware.NewRouteMatcher(a.cfg.Session.ProtectedRoutes)
	if err != nil {
		return fmt.Errorf("session.protected_routes: %w", err)
	}

	h, err := httpapi.NewHandler(a.engine,
		httpapi.WithLogger(a.log),
		httpapi.WithProtectedRoutes(matcher),
		httpapi.WithDevLogin(a.cfg.Dev.Login),
		httpapi.WithLoginLimiter(a.limiter("login", a.cfg.RateLimit.LoginPerMinute)),
	)
	if err != nil {
		return err
	}
	if a.cfg.Dev.Login {
		a.log.Warn("http.dev_login.enabled")
	}

	router := h.NewRouter()
	if a.hub != nil {
		ws := realtime.NewWSHandler(a.hub, bearerAuthenticator(a.engine), realtime.WSConfig{
			AllowedOrigins: a.cfg.Realtime.AllowedOrigins,
		}, a.log)
		router.GET("/realtime",
			httpapi.RateLimit(a.limiter("realtime", a.cfg.RateLimit.RealtimePerMinute), a.log),
			gin.WrapH(ws),
		)
	}
	if a.cfg.Metrics.Enabled {
		router.GET(a.cfg.Metrics.Path, gin.WrapH(prometheus.NewPrometheusExporter(a.engine).Handler()))
	}
	a.router = router
	return nil
}

func (a *App) limiter(name string, perMinute int) *rate.Limiter {
	return rate.New(a.rdb, rate.Config{
		Prefix: "soundwave:rl:" + name + ":",
		Limit:  perMinute,
		Window: time.Minute,
	})
}

// bearerAuthenticator accepts the access token from the Authorization header
// or, for browsers that cannot set headers on upgrades, a token query value.
func bearerAuthenticator(tokens middleware.TokenParser) realtime.Authenticator {
	return func(r *http.Request) (string, error) {
		var token string
		if h := r.Header.Get("Authorization"); len(h) > len("Bearer ") && strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
			token = strings.TrimSpace(h[len("Bearer "):])
		}
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			return "", soundwave.ErrMissingCredentials
		}
		return tokens.ParseAccessToken(token)
	}
}

func (a *App) Handler() http.Handler { return a.router }

func (a *App) Engine() *soundwave.Engine { return a.engine }

// Start launches background workers. It returns once the Redis relay, if
// configured, has confirmed its subscription.
func (a *App) Start(ctx context.Context) error {
	if a.relay == nil {
		return nil
	}

	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.relay.Run(ctx, ready)
	}()

	select {
	case <-ready:
		go func() {
			if err := <-errCh; err != nil {
				a.log.Error("realtime.relay.fail", "err", err)
			}
		}()
		return nil
	case err := <-errCh:
		return fmt.Errorf("start redis relay: %w", err)
	case <-time.After(5 * time.Second):
		return errors.New("start redis relay: subscription not confirmed")
	}
}

// Run starts background workers and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: a.cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout,
		WriteTimeout:      a.cfg.HTTP.WriteTimeout,
		IdleTimeout:       a.cfg.HTTP.IdleTimeout,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTP.Addr, "accounts", a.cfg.Accounts.Driver, "relay", a.relay != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

// Close releases resources in reverse order of acquisition. Safe to call
// more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("server.close.fail", "err", err)
		}
	}
	a.closers = nil
}
