package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisRelayDeliversPublishedMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub(discardLogger())
	client := NewClient("a", "u1", 4)
	hub.Subscribe(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := NewRedisRelay(rdb, "", hub, discardLogger())
	ready := make(chan struct{})
	errc := make(chan error, 1)
	go func() { errc <- relay.Run(ctx, ready) }()

	select {
	case <-ready:
	case err := <-errc:
		t.Fatalf("relay exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("relay never subscribed")
	}

	pub := NewRedisPublisher(rdb, "")
	if err := pub.Trigger(ctx, "user-u1", "force-logout", map[string]string{"type": "SESSIONS_REVOKED"}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	select {
	case msg := <-client.Send:
		if msg.Event != "force-logout" || msg.Channel != "user-u1" {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relayed message not delivered")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("relay stopped with error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not stop")
	}
}

func TestRedisPublisherWrapsFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	err := NewRedisPublisher(rdb, "").Trigger(context.Background(), "user-u1", "e", nil)
	if err == nil {
		t.Fatalf("expected publish error")
	}
}
