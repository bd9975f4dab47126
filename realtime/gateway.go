package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls the Gateway's delivery queue.
type Config struct {
	QueueSize      int
	Workers        int
	PublishTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	return c
}

// Stats is a point-in-time copy of the Gateway counters.
type Stats struct {
	Enqueued  uint64
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

type delivery struct {
	userID  string
	event   string
	payload any
}

// Gateway is the best-effort fan-out front door. Broadcast never blocks and
// never fails: messages go onto a bounded queue and worker goroutines hand
// them to the Publisher with a per-delivery timeout. Failures are logged and
// counted. A full queue drops the message.
//
// There is no retry. A lost control message only means a stale client keeps
// playing or stays logged in a moment longer.
type Gateway struct {
	pub Publisher
	cfg Config
	log *slog.Logger

	queue chan delivery
	done  chan struct{}
	wg    sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once

	enqueued  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewGateway starts cfg.Workers delivery goroutines. Call Close to stop them.
func NewGateway(pub Publisher, cfg Config, log *slog.Logger) *Gateway {
	if pub == nil {
		pub = NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()

	g := &Gateway{
		pub:   pub,
		cfg:   cfg,
		log:   log,
		queue: make(chan delivery, cfg.QueueSize),
		done:  make(chan struct{}),
	}

	g.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go g.run()
	}
	return g
}

// Broadcast queues event for every connection on userID's channel.
// ctx is only consulted for cancellation before queuing; delivery outlives
// the request that triggered it.
func (g *Gateway) Broadcast(ctx context.Context, userID, event string, payload any) {
	if g == nil {
		return
	}
	if g.closed.Load() {
		g.dropped.Add(1)
		g.log.Warn("realtime.broadcast.closed", "user_id", userID, "event", event)
		return
	}
	if ctx != nil && ctx.Err() != nil {
		g.dropped.Add(1)
		return
	}

	select {
	case g.queue <- delivery{userID: userID, event: event, payload: payload}:
		g.enqueued.Add(1)
	default:
		g.dropped.Add(1)
		g.log.Warn("realtime.broadcast.drop", "user_id", userID, "event", event, "reason", "queue full")
	}
}

func (g *Gateway) run() {
	defer g.wg.Done()

	for {
		select {
		case d := <-g.queue:
			g.deliver(d)
		case <-g.done:
			for {
				select {
				case d := <-g.queue:
					g.deliver(d)
				default:
					return
				}
			}
		}
	}
}

func (g *Gateway) deliver(d delivery) {
	channel := ChannelName(d.userID)
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.PublishTimeout)
	defer cancel()

	start := time.Now()
	err := g.trigger(ctx, channel, d.event, d.payload)
	if err != nil {
		g.failed.Add(1)
		g.log.Error("realtime.publish.fail",
			"channel", channel,
			"event", d.event,
			"elapsed", time.Since(start),
			"err", err,
		)
		return
	}
	g.delivered.Add(1)
	g.log.Debug("realtime.publish", "channel", channel, "event", d.event, "elapsed", time.Since(start))
}

// trigger shields the worker from a panicking publisher.
func (g *Gateway) trigger(ctx context.Context, channel, event string, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publisher panic: %v", r)
		}
	}()
	return g.pub.Trigger(ctx, channel, event, payload)
}

// Close stops accepting broadcasts and waits until queued ones are handed to
// the publisher. It is idempotent.
func (g *Gateway) Close() {
	if g == nil {
		return
	}
	g.closeOnce.Do(func() {
		g.closed.Store(true)
		close(g.done)
		g.wg.Wait()
	})
}

func (g *Gateway) Stats() Stats {
	if g == nil {
		return Stats{}
	}
	return Stats{
		Enqueued:  g.enqueued.Load(),
		Delivered: g.delivered.Load(),
		Failed:    g.failed.Load(),
		Dropped:   g.dropped.Load(),
	}
}

// Dropped counts broadcasts discarded before reaching a worker.
func (g *Gateway) Dropped() uint64 {
	if g == nil {
		return 0
	}
	return g.dropped.Load()
}
