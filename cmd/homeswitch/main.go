package main

import (
	"context"
	"log/slog"
	"os"

	"homeswitch/config"
	"homeswitch/internal/delivery"
	"homeswitch/internal/delivery/api"
	"homeswitch/internal/delivery/api/router/handler"
	"homeswitch/internal/delivery/scheduler"
	"homeswitch/internal/domain/service"
	logs "homeswitch/internal/infra/log"
	"homeswitch/internal/infra/persistence/postgres"
	"homeswitch/internal/infra/pubsub"
	"homeswitch/internal/infra/qrcode"
	"homeswitch/internal/infra/realtime"
	"homeswitch/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectHandler(),
		injectDelivery(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
		),
		realtime.Module,
		pubsub.Module,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewTransactionManager,
			postgres.NewUserRepository,
			postgres.NewRoomRepository,
			postgres.NewControllerRepository,
			postgres.NewDeviceRepository,
			postgres.NewCommandRepository,
			postgres.NewAlertRepository,
			postgres.NewActivityLogRepository,
			postgres.NewPushTokenRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			service.NewSystemClock,
			newQRCodeService,
		),
	)
}

// newQRCodeService creates a QR code service with dependency injection
func newQRCodeService(cfg *config.Config) service.QRCodeService {
	if cfg.QRCode == nil {
		// Use default values if not configured
		return qrcode.NewQRCodeService(256, "M")
	}

	return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewFanoutService,
			impl.NewIdentityService,
			impl.NewReaperService,
			impl.NewCommandService,
			impl.NewStatusService,
			impl.NewAlertService,
			impl.NewActivityService,
			impl.NewPushTokenService,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewControllerHandler,
			handler.NewCommandHandler,
			handler.NewUserHandler,
			handler.NewDeviceHandler,
			handler.NewAlertHandler,
			handler.NewPushTokenHandler,
			handler.NewRealtimeHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				scheduler.NewScheduler,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
