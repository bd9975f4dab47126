package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedTrigger struct {
	channel string
	event   string
	payload any
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls []recordedTrigger
	err   error
}

func (p *recordingPublisher) Trigger(_ context.Context, channel, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, recordedTrigger{channel: channel, event: event, payload: payload})
	return p.err
}

func (p *recordingPublisher) snapshot() []recordedTrigger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedTrigger(nil), p.calls...)
}

func TestGatewayDeliversOnUserChannel(t *testing.T) {
	pub := &recordingPublisher{}
	g := NewGateway(pub, Config{Workers: 1}, discardLogger())

	g.Broadcast(context.Background(), "u1", "audio-control", map[string]string{"type": "STOP_OTHER_SESSIONS"})
	g.Close()

	calls := pub.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(calls))
	}
	if calls[0].channel != "user-u1" || calls[0].event != "audio-control" {
		t.Fatalf("unexpected trigger: %+v", calls[0])
	}
	if st := g.Stats(); st.Enqueued != 1 || st.Delivered != 1 || st.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestGatewayPublisherErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("provider down")}
	g := NewGateway(pub, Config{Workers: 1}, discardLogger())

	g.Broadcast(context.Background(), "u1", "audio-control", nil)
	g.Close()

	if st := g.Stats(); st.Failed != 1 || st.Delivered != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestGatewayRecoversFromPublisherPanic(t *testing.T) {
	calls := 0
	pub := PublisherFunc(func(context.Context, string, string, any) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return nil
	})
	g := NewGateway(pub, Config{Workers: 1}, discardLogger())

	g.Broadcast(context.Background(), "u1", "e", nil)
	g.Broadcast(context.Background(), "u1", "e", nil)
	g.Close()

	if st := g.Stats(); st.Failed != 1 || st.Delivered != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestGatewayDropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pub := PublisherFunc(func(context.Context, string, string, any) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	g := NewGateway(pub, Config{Workers: 1, QueueSize: 1}, discardLogger())

	g.Broadcast(context.Background(), "u1", "e", 1)
	<-started
	g.Broadcast(context.Background(), "u1", "e", 2)

	done := make(chan struct{})
	go func() {
		g.Broadcast(context.Background(), "u1", "e", 3)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Broadcast blocked on a full queue")
	}

	if g.Dropped() != 1 {
		t.Fatalf("expected 1 dropped, got %d", g.Dropped())
	}

	close(release)
	g.Close()
	if st := g.Stats(); st.Delivered != 2 {
		t.Fatalf("expected 2 delivered, got %+v", st)
	}
}

func TestGatewayBroadcastAfterCloseIsDropped(t *testing.T) {
	pub := &recordingPublisher{}
	g := NewGateway(pub, Config{}, discardLogger())
	g.Close()
	g.Close()

	g.Broadcast(context.Background(), "u1", "e", nil)
	if g.Dropped() != 1 {
		t.Fatalf("expected drop after close, got %d", g.Dropped())
	}
	if len(pub.snapshot()) != 0 {
		t.Fatalf("publisher must not be called after close")
	}
}

func TestGatewayCancelledContextIsDropped(t *testing.T) {
	pub := &recordingPublisher{}
	g := NewGateway(pub, Config{}, discardLogger())
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g.Broadcast(ctx, "u1", "e", nil)

	if g.Dropped() != 1 {
		t.Fatalf("expected drop for cancelled context, got %d", g.Dropped())
	}
}

func TestGatewayDeliveryOutlivesRequestContext(t *testing.T) {
	got := make(chan error, 1)
	pub := PublisherFunc(func(ctx context.Context, _, _ string, _ any) error {
		got <- ctx.Err()
		return nil
	})
	g := NewGateway(pub, Config{Workers: 1}, discardLogger())
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	g.Broadcast(ctx, "u1", "e", nil)
	cancel()

	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("delivery context inherited request cancellation: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("publisher not called")
	}
}

func TestNilGatewayIsSafe(t *testing.T) {
	var g *Gateway
	g.Broadcast(context.Background(), "u1", "e", nil)
	g.Close()
	if g.Dropped() != 0 || g.Stats() != (Stats{}) {
		t.Fatalf("nil gateway should report zero stats")
	}
}

func TestMultiPublisherJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: errors.New("down")}
	m := MultiPublisher{bad, nil, ok}

	err := m.Trigger(context.Background(), "user-u1", "e", nil)
	if err == nil || !errors.Is(err, bad.err) {
		t.Fatalf("expected joined error wrapping publisher failure, got %v", err)
	}
	if len(ok.snapshot()) != 1 {
		t.Fatalf("healthy publisher must still be triggered")
	}
}
