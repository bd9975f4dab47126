package realtime

import "sync"

// Client is one websocket connection subscribed to its user's channel.
//
// Send is never closed by the server so concurrent fan-out cannot panic;
// done signals the connection goroutines to stop. Close is idempotent.
type Client struct {
	ID     string
	UserID string
	Send   chan Message

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(id, userID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 16
	}
	return &Client{
		ID:     id,
		UserID: userID,
		Send:   make(chan Message, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
