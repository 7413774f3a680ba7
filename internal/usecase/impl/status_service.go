package impl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"homeswitch/config"
	deliverycontext "homeswitch/internal/delivery/context"
	"homeswitch/internal/domain/constants"
	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// statusService implements the StatusUsecase interface.
type statusService struct {
	txManager      repository.TransactionManager
	controllerRepo repository.ControllerRepository
	fanout         usecase.FanoutUsecase
	publisher      service.EventPublisher
	clock          service.Clock
	gate           alertGate
	allowList      map[string]struct{}
	logger         *slog.Logger
}

// StatusServiceParams holds dependencies for StatusService, injected by Fx.
type StatusServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	ControllerRepo repository.ControllerRepository
	Fanout         usecase.FanoutUsecase
	Publisher      service.EventPublisher
	Clock          service.Clock
	Config         *config.Config
	Logger         *slog.Logger
}

// NewStatusService is the constructor for statusService.
func NewStatusService(params StatusServiceParams) usecase.StatusUsecase {
	channels := constants.DefaultChannelAllowList
	if params.Config != nil && len(params.Config.Controllers.ChannelAllowList) > 0 {
		channels = params.Config.Controllers.ChannelAllowList
	}

	allowList := make(map[string]struct{}, len(channels))
	for _, channel := range channels {
		allowList[channel] = struct{}{}
	}

	return &statusService{
		txManager:      params.TxManager,
		controllerRepo: params.ControllerRepo,
		fanout:         params.Fanout,
		publisher:      params.Publisher,
		clock:          params.Clock,
		gate:           newAlertGate(params.Config),
		allowList:      allowList,
		logger:         params.Logger,
	}
}

func (srv *statusService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ReportStatus stores the reported channel states. A device_status event is
// published only for channels whose on/off state or current changed.
func (srv *statusService) ReportStatus(ctx context.Context, controllerID string, channels map[string]usecase.ChannelStatus) (*usecase.ReportStatusOutput, error) {
	controller, err := srv.controllerRepo.FindByControllerID(ctx, controllerID)
	if errors.Is(err, repository.ErrControllerNotFound) {
		return nil, domainerrors.ErrControllerNotRegistered
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find controller")
	}

	now := srv.clock.Now()
	if err := srv.controllerRepo.Touch(ctx, controller.ID, now); err != nil {
		return nil, errors.Wrap(err, "failed to mark controller online")
	}

	names := make([]string, 0, len(channels))
	for name := range channels {
		if _, ok := srv.allowList[name]; ok {
			names = append(names, name)
		}
	}
	// Fixed lock order across concurrent reports.
	slices.Sort(names)

	ob := &outbox{}
	output := &usecase.ReportStatusOutput{}
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		ob.reset()
		output.DevicesUpdated = 0
		output.AlertsRaised = 0

		for _, name := range names {
			changed, raised, err := srv.applyChannel(ctx, repoFactory, controller, name, channels[name], now, ob)
			if err != nil {
				return err
			}
			if changed {
				output.DevicesUpdated++
			}
			if raised {
				output.AlertsRaised++
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	ob.flush(ctx, srv.fanout, srv.publisher, srv.log(ctx))

	if output.DevicesUpdated > 0 || output.AlertsRaised > 0 {
		srv.log(ctx).Info("Controller status applied",
			slog.String("controller_id", controllerID),
			slog.Int("devices_updated", output.DevicesUpdated),
			slog.Int("alerts_raised", output.AlertsRaised))
	}

	return output, nil
}

func (srv *statusService) applyChannel(ctx context.Context, repoFactory repository.RepositoryFactory, controller *entity.Controller, channel string, state usecase.ChannelStatus, now time.Time, ob *outbox) (bool, bool, error) {
	deviceRepo := repoFactory.NewDeviceRepository()

	found, err := deviceRepo.FindByControllerAndPin(ctx, controller.ID, channel)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, errors.Wrap(err, "failed to find channel device")
	}

	device, err := deviceRepo.LockByID(ctx, found.ID)
	if err != nil {
		return false, false, errors.Wrap(err, "failed to lock device")
	}

	status := entity.StatusFromBool(state.On)
	changed := device.Status != status
	if state.Current != nil && !sameReading(device.CurrentValue, state.Current) {
		changed = true
		current := *state.Current
		device.CurrentValue = &current
	}
	device.Status = status
	device.LastSeen = &now

	if err := deviceRepo.UpdateDevice(ctx, device); err != nil {
		return false, false, errors.Wrap(err, "failed to store channel status")
	}

	if changed {
		ob.publish(device.OwnerID, usecase.EventDeviceStatus, deviceStatusData(device))
	}

	if !state.Fault {
		return changed, false, nil
	}

	alertType := entity.ParseAlertType(state.LockoutType)
	message := fmt.Sprintf("%s on %s", alertType.Title(), device.Name)
	_, duplicate, err := srv.gate.raiseTx(ctx, repoFactory, device, &controller.ID, alertType, message, entity.SourceController, now, ob)
	if err != nil {
		return false, false, err
	}

	return changed, !duplicate, nil
}

func sameReading(stored, reported *float64) bool {
	if stored == nil || reported == nil {
		return stored == reported
	}

	return *stored == *reported
}
