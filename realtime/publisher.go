package realtime

import (
	"context"
	"errors"
	"fmt"
)

// Publisher pushes one event to every subscriber of a channel. Trigger
// reports transport failures; it is the Gateway's job to swallow them.
type Publisher interface {
	Trigger(ctx context.Context, channel, event string, payload any) error
}

// PublisherFunc adapts a function to [Publisher].
type PublisherFunc func(ctx context.Context, channel, event string, payload any) error

func (f PublisherFunc) Trigger(ctx context.Context, channel, event string, payload any) error {
	return f(ctx, channel, event, payload)
}

// NopPublisher accepts and discards every event.
type NopPublisher struct{}

func (NopPublisher) Trigger(context.Context, string, string, any) error { return nil }

// MultiPublisher triggers every wrapped publisher in order and joins their
// errors. One failing transport does not stop the others.
type MultiPublisher []Publisher

func (m MultiPublisher) Trigger(ctx context.Context, channel, event string, payload any) error {
	var errs []error
	for i, p := range m {
		if p == nil {
			continue
		}
		if err := p.Trigger(ctx, channel, event, payload); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
