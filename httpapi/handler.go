package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/soundwave"
	"github.com/MrEthical07/soundwave/internal/rate"
	"github.com/MrEthical07/soundwave/middleware"
	"github.com/gin-gonic/gin"
)

// CodeForbidden is returned when the body names another user.
const CodeForbidden = "FORBIDDEN"

// Handler serves the session HTTP routes on top of an Engine.
type Handler struct {
	log       *slog.Logger
	engine    *soundwave.Engine
	protected *middleware.RouteMatcher

	devLogin     bool
	loginLimiter *rate.Limiter
	readyTimeout time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithProtectedRoutes sets the Session-ID allow-list. Without it every
// session route except handle-audio-play and login requires a session.
func WithProtectedRoutes(m *middleware.RouteMatcher) Option {
	return func(h *Handler) {
		if m != nil {
			h.protected = m
		}
	}
}

// WithDevLogin exposes POST /session/login, which opens a session for any
// active account without checking credentials. Never enable in production.
func WithDevLogin(enabled bool) Option {
	return func(h *Handler) { h.devLogin = enabled }
}

// WithLoginLimiter throttles POST /session/login per client IP.
func WithLoginLimiter(l *rate.Limiter) Option {
	return func(h *Handler) { h.loginLimiter = l }
}

// DefaultProtectedRoutes are guarded by the Session-ID check.
var DefaultProtectedRoutes = []string{
	"GET /session/active",
	"POST /session/profile",
	"POST /session/logout",
	"POST /session/logout-all",
}

func NewHandler(engine *soundwave.Engine, opts ...Option) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("httpapi: nil engine")
	}

	h := &Handler{
		log:          slog.Default(),
		engine:       engine,
		protected:    middleware.MustRouteMatcher(DefaultProtectedRoutes...),
		readyTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register mounts the session routes and the health probes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.handleHealth)
	r.GET("/readyz", h.handleReady)

	s := r.Group("/session",
		middleware.GinAuthenticate(h.engine),
		middleware.GinSessionGuard(h.engine, h.protected),
	)
	s.POST("/handle-audio-play", h.handleAudioPlay)
	s.GET("/active", h.handleListSessions)
	s.POST("/profile", h.handleUpdateProfile)
	s.POST("/logout", h.handleLogout)
	s.POST("/logout-all", h.handleLogoutAll)
	if h.devLogin {
		s.POST("/login", RateLimit(h.loginLimiter, h.log), h.handleLogin)
	}
}

// NewRouter returns a gin engine with recovery, request logging, audit
// context and the session routes.
func (h *Handler) NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(h.log), AuditContext())
	h.Register(router)
	return router
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readyTimeout)
	defer cancel()

	latency, err := h.engine.Ping(ctx)
	if err != nil {
		h.log.Warn("http.ready.fail", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "redisLatencyMs": latency.Milliseconds()})
}

// callerID returns the bearer identity, aborting with 401 when absent.
func callerID(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.Header("Cache-Control", "no-store")
		c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.ErrorBody{
			Error:   middleware.CodeUnauthorized,
			Message: "authentication required",
		})
		return "", false
	}
	return userID, true
}

// callerSession returns the identity and the Session-ID the guard accepted.
func callerSession(c *gin.Context) (string, string, bool) {
	userID, ok := callerID(c)
	if !ok {
		return "", "", false
	}
	sessionID, ok := middleware.SessionIDFromContext(c.Request.Context())
	if !ok {
		middleware.GinAbort(c, soundwave.ErrMissingCredentials)
		return "", "", false
	}
	return userID, sessionID, true
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorBody{
		Error:   soundwave.CodeInvalidInput,
		Message: msg,
	})
}
