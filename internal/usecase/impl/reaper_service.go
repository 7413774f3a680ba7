package impl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"homeswitch/config"
	deliverycontext "homeswitch/internal/delivery/context"
	"homeswitch/internal/domain/constants"
	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/infra/metrics"
	"homeswitch/internal/usecase"
	"homeswitch/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// reaperService implements the ReaperUsecase interface.
type reaperService struct {
	txManager      repository.TransactionManager
	controllerRepo repository.ControllerRepository
	fanout         usecase.FanoutUsecase
	publisher      service.EventPublisher
	clock          service.Clock
	gate           alertGate
	timeout        time.Duration
	offlineAfter   time.Duration
	logger         *slog.Logger
}

// ReaperServiceParams holds dependencies for ReaperService, injected by Fx.
type ReaperServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	ControllerRepo repository.ControllerRepository
	Fanout         usecase.FanoutUsecase
	Publisher      service.EventPublisher
	Clock          service.Clock
	Config         *config.Config
	Logger         *slog.Logger
}

// NewReaperService is the constructor for reaperService.
func NewReaperService(params ReaperServiceParams) usecase.ReaperUsecase {
	srv := &reaperService{
		txManager:      params.TxManager,
		controllerRepo: params.ControllerRepo,
		fanout:         params.Fanout,
		publisher:      params.Publisher,
		clock:          params.Clock,
		gate:           newAlertGate(params.Config),
		timeout:        constants.DefaultCommandTimeout,
		offlineAfter:   constants.DefaultControllerOfflineAfter,
		logger:         params.Logger,
	}

	if params.Config != nil {
		if params.Config.CommandQueue.CommandTimeout > 0 {
			srv.timeout = params.Config.CommandQueue.CommandTimeout
		}
		if params.Config.Controllers.OfflineAfter > 0 {
			srv.offlineAfter = params.Config.Controllers.OfflineAfter
		}
	}

	return srv
}

func (srv *reaperService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ReapController fails the stale commands of one controller.
func (srv *reaperService) ReapController(ctx context.Context, controllerID string) (int, error) {
	controller, err := srv.controllerRepo.FindByControllerID(ctx, controllerID)
	if errors.Is(err, repository.ErrControllerNotFound) {
		return 0, domainerrors.ErrControllerNotRegistered
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to find controller")
	}

	return srv.reap(ctx, &controller.ID)
}

// reap fails every non-terminal command at least one timeout old in a single
// transaction. A nil controllerID covers all controllers.
func (srv *reaperService) reap(ctx context.Context, controllerID *uuid.UUID) (int, error) {
	now := srv.clock.Now()
	ob := &outbox{}

	var reaped []*entity.Command
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		ob.reset()

		var err error
		reaped, err = repoFactory.NewCommandRepository().FailStale(ctx, controllerID, now.Add(-srv.timeout), now, entity.CommandTimeoutError)
		if err != nil {
			return errors.Wrap(err, "failed to fail stale commands")
		}

		deviceRepo := repoFactory.NewDeviceRepository()
		for _, command := range reaped {
			if command.DeviceID == nil {
				continue
			}

			device, err := deviceRepo.FindByID(ctx, *command.DeviceID)
			if errors.Is(err, repository.ErrDeviceNotFound) {
				continue
			}
			if err != nil {
				return errors.Wrap(err, "failed to find reaped command device")
			}
			ob.publish(device.OwnerID, usecase.EventCommandUpdate, commandUpdateData(command, device.DeviceID, now, srv.timeout))
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(reaped) > 0 {
		metrics.CommandsTotal.WithLabelValues(metrics.CommandReaped).Add(float64(len(reaped)))
		srv.log(ctx).Info("Stale commands reaped", slog.Int("count", len(reaped)))
		ob.flush(ctx, srv.fanout, nil, srv.log(ctx))
	}

	return len(reaped), nil
}

// SweepAll reaps every controller and takes silent controllers offline,
// raising an offline alert for each of their paired devices.
func (srv *reaperService) SweepAll(ctx context.Context) (*usecase.SweepResult, error) {
	result := &usecase.SweepResult{}

	reaped, err := srv.reap(ctx, nil)
	if err != nil {
		return nil, err
	}
	result.CommandsReaped = reaped

	now := srv.clock.Now()

	var stranded []*entity.Device
	offline := make(map[uuid.UUID]*entity.Controller)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		stranded = stranded[:0]

		silent, err := repoFactory.NewControllerRepository().MarkOfflineSince(ctx, now.Add(-srv.offlineAfter))
		if err != nil {
			return errors.Wrap(err, "failed to mark controllers offline")
		}
		result.ControllersOffline = len(silent)

		deviceRepo := repoFactory.NewDeviceRepository()
		for _, controller := range silent {
			offline[controller.ID] = controller

			devices, err := deviceRepo.FindByController(ctx, controller.ID)
			if err != nil {
				return errors.Wrap(err, "failed to list controller devices")
			}
			for _, device := range devices {
				if device.IsPaired {
					stranded = append(stranded, device)
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Controller locks are released before any device is locked.
	for _, device := range stranded {
		raised, err := srv.raiseOffline(ctx, device.ID, offline[*device.ControllerID], now)
		if err != nil {
			return nil, err
		}
		if raised {
			result.AlertsRaised++
		}
	}

	if result.CommandsReaped > 0 || result.ControllersOffline > 0 {
		srv.log(ctx).Info("Sweep finished",
			slog.Int("commands_reaped", result.CommandsReaped),
			slog.Int("controllers_offline", result.ControllersOffline),
			slog.Int("alerts_raised", result.AlertsRaised))
	}

	return result, nil
}

func (srv *reaperService) raiseOffline(ctx context.Context, deviceID uuid.UUID, controller *entity.Controller, now time.Time) (bool, error) {
	ob := &outbox{}
	raised := false

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		ob.reset()

		device, err := repoFactory.NewDeviceRepository().LockByID(ctx, deviceID)
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to lock device")
		}
		if !device.IsPaired {
			return nil
		}

		message := fmt.Sprintf("%s is offline: %s stopped reporting", device.Name, controller.Name)
		if controller.LastSeen != nil {
			message += " " + util.FormatDuration(now.Sub(*controller.LastSeen)) + " ago"
		}
		_, duplicate, err := srv.gate.raiseTx(ctx, repoFactory, device, device.ControllerID, entity.AlertOffline, message, entity.SourceSystem, now, ob)
		if err != nil {
			return err
		}
		raised = !duplicate

		return nil
	})
	if err != nil {
		return false, err
	}

	ob.flush(ctx, srv.fanout, srv.publisher, srv.log(ctx))

	return raised, nil
}
