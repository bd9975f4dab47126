package realtime

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pusher/pusher-http-go/v5"
)

// PusherConfig holds hosted Pusher Channels credentials.
type PusherConfig struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
	Timeout time.Duration
}

func (c PusherConfig) Enabled() bool {
	return c.AppID != "" && c.Key != "" && c.Secret != ""
}

func (c PusherConfig) Validate() error {
	if !c.Enabled() {
		return errors.New("pusher: app id, key and secret are required")
	}
	if c.Cluster == "" {
		return errors.New("pusher: cluster is required")
	}
	return nil
}

// pusherTrigger is the subset of *pusher.Client used here.
type pusherTrigger interface {
	Trigger(channel string, eventName string, data interface{}) error
}

// PusherPublisher hands events to the hosted Pusher Channels API. The
// client library has no context support; the HTTP client timeout bounds
// each call instead.
type PusherPublisher struct {
	client pusherTrigger
}

func NewPusherPublisher(cfg PusherConfig) (*PusherPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PusherPublisher{client: &pusher.Client{
		AppID:      cfg.AppID,
		Key:        cfg.Key,
		Secret:     cfg.Secret,
		Cluster:    cfg.Cluster,
		Secure:     true,
		HTTPClient: &http.Client{Timeout: timeout},
	}}, nil
}

func (p *PusherPublisher) Trigger(ctx context.Context, channel, event string, payload any) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if event == "" {
		return ErrEmptyEvent
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.client.Trigger(channel, event, payload)
}
