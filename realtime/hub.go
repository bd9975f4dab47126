package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Hub is the in-process fan-out for websocket clients. It implements
// [Publisher] so the Gateway can target it directly on a single instance,
// and accepts relayed messages through Deliver when instances share Redis.
type Hub struct {
	log *slog.Logger
	now func() time.Time

	mu       sync.RWMutex
	channels map[string]map[string]*Client

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:      log,
		now:      time.Now,
		channels: make(map[string]map[string]*Client),
	}
}

// Subscribe adds client to its user's channel.
func (h *Hub) Subscribe(client *Client) {
	if client == nil || client.ID == "" || client.UserID == "" {
		return
	}
	channel := ChannelName(client.UserID)

	h.mu.Lock()
	members := h.channels[channel]
	if members == nil {
		members = make(map[string]*Client)
		h.channels[channel] = members
	}
	members[client.ID] = client
	h.mu.Unlock()

	h.log.Info("realtime.subscribe", "channel", channel, "client_id", client.ID)
}

// Unsubscribe removes the client and then signals it to shut down. Removal
// happens first so no broadcaster holds the client while it tears down.
func (h *Hub) Unsubscribe(client *Client) {
	if client == nil {
		return
	}
	channel := ChannelName(client.UserID)

	h.mu.Lock()
	if members := h.channels[channel]; members != nil {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
	h.mu.Unlock()

	client.Close()
	h.log.Info("realtime.unsubscribe", "channel", channel, "client_id", client.ID)
}

// Subscribers returns the number of clients on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Trigger builds a message and fans it out locally.
func (h *Hub) Trigger(_ context.Context, channel, event string, payload any) error {
	msg, err := NewMessage(channel, event, payload, h.now())
	if err != nil {
		return err
	}
	h.Deliver(msg)
	return nil
}

// Deliver fans msg out to every local subscriber of msg.Channel. It never
// blocks: a client whose queue is full misses the message.
func (h *Hub) Deliver(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, c := range h.channels[msg.Channel] {
		select {
		case <-c.Done():
			continue
		default:
		}

		select {
		case c.Send <- msg:
			n++
		default:
			h.dropped.Add(1)
		}
	}
	h.sent.Add(uint64(n))
	return n
}

// Dropped counts per-client sends skipped because of a full queue.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
