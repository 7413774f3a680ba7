// Package realtime provides the event bus used to fan notifications out to
// subscribed clients, either in process or over Redis pub/sub.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"homeswitch/internal/domain/service"

	"github.com/pkg/errors"
)

const subscriberBuffer = 64

// ErrBusClosed is returned by operations on a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// memoryBus delivers events to subscribers of the same process.
type memoryBus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	groups map[string]map[*memorySubscription]struct{}
	closed bool
}

type memorySubscription struct {
	bus   *memoryBus
	group string
	ch    chan []byte
	once  sync.Once
}

// NewMemoryBus creates an in-process event bus for single instance deployments.
func NewMemoryBus(logger *slog.Logger) service.EventBus {
	return &memoryBus{
		logger: logger,
		groups: make(map[string]map[*memorySubscription]struct{}),
	}
}

// Publish hands payload to every subscriber of group. Slow subscribers miss the event.
func (b *memoryBus) Publish(_ context.Context, group string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for sub := range b.groups[group] {
		msg := make([]byte, len(payload))
		copy(msg, payload)

		select {
		case sub.ch <- msg:
		default:
			b.logger.Warn("[MemoryBus] Subscriber buffer full, dropping event", slog.String("group", group))
		}
	}

	return nil
}

// Subscribe registers a subscriber for group until ctx ends or the subscription is closed.
func (b *memoryBus) Subscribe(ctx context.Context, group string) (service.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &memorySubscription{
		bus:   b,
		group: group,
		ch:    make(chan []byte, subscriberBuffer),
	}
	if b.groups[group] == nil {
		b.groups[group] = make(map[*memorySubscription]struct{})
	}
	b.groups[group][sub] = struct{}{}

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return sub, nil
}

// Close drops every subscriber and rejects further use.
func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for group, subs := range b.groups {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
		delete(b.groups, group)
	}

	return nil
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if subs, ok := s.bus.groups[s.group]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.bus.groups, s.group)
		}
	}
	s.once.Do(func() { close(s.ch) })

	return nil
}
