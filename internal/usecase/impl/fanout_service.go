package impl

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"homeswitch/config"
	deliverycontext "homeswitch/internal/delivery/context"
	"homeswitch/internal/domain/entity"
	"homeswitch/internal/domain/lifecycle"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/infra/metrics"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type fanoutEvent struct {
	group     string
	eventType usecase.EventType
	payload   []byte
}

// fanoutService implements the FanoutUsecase interface.
type fanoutService struct {
	bus      service.EventBus
	userRepo repository.UserRepository
	clock    service.Clock
	logger   *slog.Logger

	queue    chan fanoutEvent
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// FanoutServiceParams holds dependencies for FanoutService, injected by Fx.
type FanoutServiceParams struct {
	fx.In

	Lc       fx.Lifecycle `optional:"true"`
	Bus      service.EventBus
	UserRepo repository.UserRepository
	Clock    service.Clock
	Config   *config.Config
	Logger   *slog.Logger
}

// NewFanoutService creates the fan-out. With a positive realtime.queueSize,
// events are handed to a background dispatcher; otherwise they are published inline.
func NewFanoutService(params FanoutServiceParams) usecase.FanoutUsecase {
	srv := &fanoutService{
		bus:      params.Bus,
		userRepo: params.UserRepo,
		clock:    params.Clock,
		logger:   params.Logger,
	}

	queueSize := 0
	if params.Config != nil && params.Config.Realtime != nil {
		queueSize = params.Config.Realtime.QueueSize
	}
	if queueSize <= 0 {
		return srv
	}

	srv.queue = make(chan fanoutEvent, queueSize)
	srv.stop = make(chan struct{})

	if params.Lc == nil {
		srv.startDispatcher()

		return srv
	}

	params.Lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			srv.startDispatcher()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.shutdown(ctx)
		},
	})

	return srv
}

func (srv *fanoutService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Publish marshals the envelope and hands it to the bus. Failures are logged
// and counted, never returned.
func (srv *fanoutService) Publish(ctx context.Context, userID uuid.UUID, eventType usecase.EventType, data any) {
	payload, err := json.Marshal(&usecase.Envelope{
		Type:      eventType,
		Timestamp: srv.clock.Now().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		srv.log(ctx).Error("Failed to encode event", slog.String("type", string(eventType)), slog.Any("error", err))
		metrics.FanoutEventsTotal.WithLabelValues(string(eventType), metrics.FanoutFailed).Inc()

		return
	}

	event := fanoutEvent{
		group:     entity.UserGroupKey(userID),
		eventType: eventType,
		payload:   payload,
	}

	if srv.queue == nil {
		srv.send(context.WithoutCancel(ctx), event)

		return
	}

	select {
	case srv.queue <- event:
	default:
		srv.log(ctx).Warn("Fan-out queue full, dropping event",
			slog.String("group", event.group),
			slog.String("type", string(eventType)))
		metrics.FanoutEventsTotal.WithLabelValues(string(eventType), metrics.FanoutDropped).Inc()
	}
}

// Subscribe attaches a live session to the user's group.
func (srv *fanoutService) Subscribe(ctx context.Context, email string) (service.Subscription, error) {
	user, err := findUserByEmail(ctx, srv.userRepo, email)
	if err != nil {
		return nil, err
	}

	sub, err := srv.bus.Subscribe(ctx, user.GroupKey())
	if err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to user group")
	}

	srv.log(ctx).Info("Session subscribed", slog.String("user_id", user.ID.String()))

	return sub, nil
}

func (srv *fanoutService) send(ctx context.Context, event fanoutEvent) {
	sendCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	if err := srv.bus.Publish(sendCtx, event.group, event.payload); err != nil {
		srv.log(ctx).Warn("Failed to publish event",
			slog.String("group", event.group),
			slog.String("type", string(event.eventType)),
			slog.Any("error", err))
		metrics.FanoutEventsTotal.WithLabelValues(string(event.eventType), metrics.FanoutFailed).Inc()

		return
	}

	metrics.FanoutEventsTotal.WithLabelValues(string(event.eventType), metrics.FanoutPublished).Inc()
}

func (srv *fanoutService) startDispatcher() {
	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()

		for {
			select {
			case event := <-srv.queue:
				srv.send(context.Background(), event)
			case <-srv.stop:
				srv.drain()

				return
			}
		}
	}()
}

// drain publishes whatever is already queued without waiting for more.
func (srv *fanoutService) drain() {
	for {
		select {
		case event := <-srv.queue:
			srv.send(context.Background(), event)
		default:
			return
		}
	}
}

func (srv *fanoutService) shutdown(ctx context.Context) error {
	srv.stopOnce.Do(func() { close(srv.stop) })

	done := make(chan struct{})
	go func() {
		srv.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "fan-out dispatcher did not stop in time")
	}
}
