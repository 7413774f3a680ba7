package realtime

import (
	"context"
	"log/slog"

	"homeswitch/config"
	"homeswitch/internal/domain/constants"
	"homeswitch/internal/domain/lifecycle"
	"homeswitch/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// BusParams holds dependencies for the EventBus, injected by Fx
type BusParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewEventBus creates the EventBus selected by realtime.provider
func NewEventBus(params BusParams) (service.EventBus, error) {
	cfg := params.Config.Realtime
	if cfg == nil {
		cfg = &config.RealtimeConfig{}
	}
	logger := params.Logger

	var bus service.EventBus

	switch cfg.Provider {
	case "", constants.RealtimeProviderMemory:
		logger.Info("Using in-process event bus")

		bus = NewMemoryBus(logger)

	case constants.RealtimeProviderRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("redis address is required for redis provider")
		}

		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		params.Lc.Append(fx.Hook{
			OnStart: func(startCtx context.Context) error {
				ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
				defer cancel()

				if err := client.Ping(ctx).Err(); err != nil {
					return errors.Wrap(err, "failed to ping redis")
				}

				return nil
			},
		})

		prefix := cfg.ChannelPrefix
		if prefix == "" {
			prefix = constants.DefaultRealtimeChannelPrefix
		}

		logger.Info("Using Redis event bus",
			slog.String("addr", cfg.RedisAddr),
			slog.String("channel_prefix", prefix),
		)

		bus = NewRedisBus(client, prefix, logger)

	default:
		return nil, errors.Errorf("unknown realtime provider: %s", cfg.Provider)
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			logger.Info("Closing event bus")

			return bus.Close()
		},
	})

	return bus, nil
}

// Module provides the realtime FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewEventBus),
)
