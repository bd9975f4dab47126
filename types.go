package soundwave

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/soundwave/internal/audit"
)

// User is the slice of an account the session subsystem needs from the
// system of record.
type User struct {
	ID             string
	IsActive       bool
	CurrentProfile string
	Role           string
}

// AccountProvider looks up accounts in the system of record.
//
// FindUser must return an error matching [ErrUserNotFound] when the account
// does not exist; any other error is treated as an infrastructure failure.
type AccountProvider interface {
	FindUser(ctx context.Context, userID string) (User, error)
}

// Broadcaster delivers a control message to every connection subscribed to a
// user's channel. Implementations must not block on delivery and must never
// report delivery failures to the caller.
type Broadcaster interface {
	Broadcast(ctx context.Context, userID, event string, payload any)
}

// Control message events.
const (
	EventAudioControl = "audio-control"
	EventForceLogout  = "force-logout"
)

// Control message types carried in the payload "type" field.
const (
	ControlStopOtherSessions  = "STOP_OTHER_SESSIONS"
	ControlAccountDeactivated = "ACCOUNT_DEACTIVATED"
	ControlSessionsRevoked    = "SESSIONS_REVOKED"
)

// AudioControlPayload asks every other device of the user to stop playback.
// Receivers compare CurrentSessionID with their own and ignore a match.
type AudioControlPayload struct {
	Type             string `json:"type"`
	CurrentSessionID string `json:"currentSessionId"`
}

// ForceLogoutPayload tells receivers to discard local credentials.
type ForceLogoutPayload struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// SessionInfo describes one live device session.
type SessionInfo struct {
	SessionID      string    `json:"sessionId"`
	Role           string    `json:"role"`
	CurrentProfile string    `json:"currentProfile"`
	CreatedAt      time.Time `json:"createdAt"`
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	SessionID   string        `json:"sessionId"`
	AccessToken string        `json:"accessToken,omitempty"`
	ExpiresIn   time.Duration `json:"-"`
}

// AuditEvent is the structured record handed to an [AuditSink].
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the Engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes audit events through a structured logger.
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
