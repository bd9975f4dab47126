package realtime

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/soundwave/internal"
)

// ChannelPrefix prefixes every per-user channel name.
const ChannelPrefix = "user-"

// maxPayloadBytes bounds one control message payload. Pusher rejects
// anything above 10KB, and control messages are tiny.
const maxPayloadBytes = 10 << 10

var (
	ErrEmptyChannel    = errors.New("realtime: empty channel")
	ErrEmptyEvent      = errors.New("realtime: empty event")
	ErrPayloadTooLarge = errors.New("realtime: payload too large")
)

// ChannelName returns the private channel of userID.
func ChannelName(userID string) string {
	return ChannelPrefix + userID
}

// UserIDFromChannel is the inverse of [ChannelName].
func UserIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, ChannelPrefix) {
		return "", false
	}
	userID := strings.TrimPrefix(channel, ChannelPrefix)
	return userID, userID != ""
}

// Message is one control message as delivered to websocket clients and relayed
// between instances. ID is a ULID so clients can drop duplicates.
type Message struct {
	ID      string          `json:"id"`
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sentAt"`
}

// NewMessage encodes payload and stamps the message ID and time.
func NewMessage(channel, event string, payload any, now time.Time) (Message, error) {
	if channel == "" {
		return Message{}, ErrEmptyChannel
	}
	if event == "" {
		return Message{}, ErrEmptyEvent
	}

	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return Message{}, err
		}
		raw = b
	}
	if len(raw) > maxPayloadBytes {
		return Message{}, ErrPayloadTooLarge
	}

	now = now.UTC()
	id, err := internal.NewULID(now)
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:      id,
		Channel: channel,
		Event:   event,
		Payload: raw,
		SentAt:  now,
	}, nil
}
