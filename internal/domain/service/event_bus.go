package service

import "context"

// EventBus delivers serialized events to every subscriber of a group.
// Delivery is best-effort: slow or absent subscribers lose messages.
type EventBus interface {
	Publish(ctx context.Context, group string, payload []byte) error

	// Subscribe registers for a group until the subscription is closed or ctx ends.
	Subscribe(ctx context.Context, group string) (Subscription, error)

	Close() error
}

// Subscription is a live registration on an EventBus group.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}
