package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRelayPrefix namespaces relay pub/sub channels so they cannot collide
// with other users of the same Redis.
const DefaultRelayPrefix = "soundwave:rt:"

// RedisPublisher publishes messages on Redis pub/sub so every instance's
// [RedisRelay] can hand them to its local Hub.
type RedisPublisher struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisPublisher(rdb redis.UniversalClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = DefaultRelayPrefix
	}
	return &RedisPublisher{rdb: rdb, prefix: prefix, now: time.Now}
}

func (p *RedisPublisher) Trigger(ctx context.Context, channel, event string, payload any) error {
	msg, err := NewMessage(channel, event, payload, p.now())
	if err != nil {
		return err
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.prefix+channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// RedisRelay pattern-subscribes to every relay channel and delivers the
// decoded messages to a Hub.
type RedisRelay struct {
	rdb    redis.UniversalClient
	prefix string
	hub    *Hub
	log    *slog.Logger
}

func NewRedisRelay(rdb redis.UniversalClient, prefix string, hub *Hub, log *slog.Logger) *RedisRelay {
	if prefix == "" {
		prefix = DefaultRelayPrefix
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisRelay{rdb: rdb, prefix: prefix, hub: hub, log: log}
}

// Run blocks until ctx is cancelled or the subscription fails. The
// subscription is confirmed before Run starts delivering; ready, if non-nil,
// is closed at that point.
func (r *RedisRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.rdb.PSubscribe(ctx, r.prefix+ChannelPrefix+"*")
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}
	r.log.Info("realtime.relay.start", "pattern", r.prefix+ChannelPrefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("realtime.relay.stop")
			return nil
		case m, ok := <-ch:
			if !ok {
				return errors.New("redis relay: subscription closed")
			}
			r.handle(m)
		}
	}
}

func (r *RedisRelay) handle(m *redis.Message) {
	var msg Message
	if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
		r.log.Warn("realtime.relay.bad_message", "channel", m.Channel, "err", err)
		return
	}
	if r.prefix+msg.Channel != m.Channel {
		r.log.Warn("realtime.relay.channel_mismatch", "channel", m.Channel, "message_channel", msg.Channel)
		return
	}
	r.hub.Deliver(msg)
}
