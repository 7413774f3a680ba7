package realtime

import (
	"context"
	"log/slog"
	"sync"

	"homeswitch/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// redisBus fans events out across instances through Redis PUBLISH/SUBSCRIBE.
type redisBus struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan []byte
	once   sync.Once
	done   chan struct{}
}

// NewRedisBus creates an event bus over an existing Redis client.
// Group names are published on the channel prefix+group.
func NewRedisBus(client *redis.Client, prefix string, logger *slog.Logger) service.EventBus {
	return &redisBus{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (b *redisBus) channel(group string) string {
	return b.prefix + group
}

func (b *redisBus) Publish(ctx context.Context, group string, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel(group), payload).Err(); err != nil {
		return errors.Wrapf(err, "failed to publish to group %s", group)
	}

	return nil
}

// Subscribe waits for the subscription to be confirmed before returning.
func (b *redisBus) Subscribe(ctx context.Context, group string) (service.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel(group))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		return nil, errors.Wrapf(err, "failed to subscribe to group %s", group)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan []byte, subscriberBuffer),
		done:   make(chan struct{}),
	}

	go sub.relay(ctx, b.logger.With(slog.String("group", group)))

	return sub, nil
}

func (b *redisBus) Close() error {
	return errors.WithStack(b.client.Close())
}

func (s *redisSubscription) relay(ctx context.Context, logger *slog.Logger) {
	defer close(s.ch)

	msgs := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()

			return
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			select {
			case s.ch <- []byte(msg.Payload):
			default:
				logger.Warn("[RedisBus] Subscriber buffer full, dropping event")
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.ch
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})

	return errors.WithStack(err)
}
