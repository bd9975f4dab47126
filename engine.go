package soundwave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/soundwave/internal/audit"
	"github.com/MrEthical07/soundwave/internal/flows"
	"github.com/MrEthical07/soundwave/jwt"
	"github.com/MrEthical07/soundwave/realtime"
	"github.com/MrEthical07/soundwave/session"
)

// Engine is the session service. It is safe for concurrent use once built
// by [Builder.Build].
type Engine struct {
	config      Config
	log         *slog.Logger
	sessions    *session.Store
	accounts    AccountProvider
	broadcaster Broadcaster
	gateway     *realtime.Gateway
	tokens      *jwt.Manager
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	flows       flows.Deps
	now         func() time.Time
}

// Close drains the fan-out queue and the audit dispatcher. A Broadcaster
// passed through [Builder.WithBroadcaster] is left to its owner.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeGateway()
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) closeGateway() {
	if e.gateway != nil {
		e.gateway.Close()
	}
}

// AuditDropped counts audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// BroadcastDropped counts control messages lost before reaching the
// publisher. Always zero with an external Broadcaster.
func (e *Engine) BroadcastDropped() uint64 {
	if e == nil || e.gateway == nil {
		return 0
	}
	return e.gateway.Dropped()
}

// BroadcastStats reports the gateway counters.
func (e *Engine) BroadcastStats() realtime.Stats {
	if e == nil || e.gateway == nil {
		return realtime.Stats{}
	}
	return e.gateway.Stats()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping checks the session store and returns the round-trip time.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	d, err := e.sessions.Ping(ctx)
	if err != nil {
		return 0, storeError(err)
	}
	return d, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// storeError maps a session store failure onto the public sentinel while
// keeping the cause in the chain.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
