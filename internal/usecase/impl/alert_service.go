package impl

import (
	"context"
	"log/slog"
	"strings"
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

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// alertGate applies the per (device, alert type) cooldown. Callers must hold
// the device row lock so concurrent raises for one device serialize.
type alertGate struct {
	cooldown time.Duration
}

func newAlertGate(cfg *config.Config) alertGate {
	gate := alertGate{cooldown: constants.DefaultAlertCooldown}
	if cfg != nil && cfg.Alerts.Cooldown > 0 {
		gate.cooldown = cfg.Alerts.Cooldown
	}

	return gate
}

// raiseTx persists a new alert unless one of the same type is still inside
// the cooldown, in which case that alert is returned with duplicate set.
func (gate alertGate) raiseTx(ctx context.Context, repoFactory repository.RepositoryFactory, device *entity.Device, controllerID *uuid.UUID, alertType entity.AlertType, message string, source entity.LogSource, now time.Time, ob *outbox) (*entity.Alert, bool, error) {
	alertRepo := repoFactory.NewAlertRepository()

	existing, err := alertRepo.FindLatestSince(ctx, device.ID, alertType, now.Add(-gate.cooldown))
	if err == nil {
		metrics.AlertsTotal.WithLabelValues(string(alertType), metrics.AlertDuplicate).Inc()

		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrAlertNotFound) {
		return nil, false, errors.Wrap(err, "failed to check alert cooldown")
	}

	if controllerID == nil {
		controllerID = device.ControllerID
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = alertType.Title() + " on " + device.Name
	}

	alert := &entity.Alert{
		ID:           uuid.New(),
		DeviceID:     device.ID,
		ControllerID: controllerID,
		AlertType:    alertType,
		Message:      message,
		CreatedAt:    now,
	}
	if err := alertRepo.CreateAlert(ctx, alert); err != nil {
		return nil, false, errors.Wrap(err, "failed to create alert")
	}

	entry := newActivityEntry(device, alertType.LogType(), entity.ActionSystemAlert, source, message, now)
	entry.Details = map[string]any{"alert_id": alert.ID.String(), "alert_type": string(alertType)}
	if err := repoFactory.NewActivityLogRepository().CreateEntry(ctx, entry); err != nil {
		return nil, false, errors.Wrap(err, "failed to record alert")
	}

	metrics.AlertsTotal.WithLabelValues(string(alertType), metrics.AlertAccepted).Inc()

	ob.publish(device.OwnerID, usecase.EventAlertNotification, &usecase.AlertNotificationData{
		AlertType: string(alertType),
		Title:     alertType.Title(),
		Message:   message,
		DeviceID:  device.DeviceID,
	})
	if device.OwnerID != nil {
		ob.pushAlert(&service.AlertEvent{
			RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
			ReportedBy: deliverycontext.GetControllerIDFromContext(ctx),
			AlertID:    alert.ID.String(),
			UserID:     device.OwnerID.String(),
			DeviceID:   device.DeviceID,
			AlertType:  string(alertType),
			Title:      alertType.Title(),
			Message:    message,
			CreatedAt:  now.Format(time.RFC3339),
		})
	}

	return alert, false, nil
}

// alertService implements the AlertUsecase interface.
type alertService struct {
	txManager      repository.TransactionManager
	userRepo       repository.UserRepository
	controllerRepo repository.ControllerRepository
	alertRepo      repository.AlertRepository
	fanout         usecase.FanoutUsecase
	publisher      service.EventPublisher
	clock          service.Clock
	gate           alertGate
	logger         *slog.Logger
}

// AlertServiceParams holds dependencies for AlertService, injected by Fx.
type AlertServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	UserRepo       repository.UserRepository
	ControllerRepo repository.ControllerRepository
	AlertRepo      repository.AlertRepository
	Fanout         usecase.FanoutUsecase
	Publisher      service.EventPublisher
	Clock          service.Clock
	Config         *config.Config
	Logger         *slog.Logger
}

// NewAlertService is the constructor for alertService.
func NewAlertService(params AlertServiceParams) usecase.AlertUsecase {
	return &alertService{
		txManager:      params.TxManager,
		userRepo:       params.UserRepo,
		controllerRepo: params.ControllerRepo,
		alertRepo:      params.AlertRepo,
		fanout:         params.Fanout,
		publisher:      params.Publisher,
		clock:          params.Clock,
		gate:           newAlertGate(params.Config),
		logger:         params.Logger,
	}
}

func (srv *alertService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Raise records an alert for a device, deduplicated within the cooldown.
func (srv *alertService) Raise(ctx context.Context, deviceID uuid.UUID, controllerID *uuid.UUID, alertType entity.AlertType, message string) (*usecase.RaiseOutput, error) {
	return srv.raise(ctx, entity.SourceSystem, func(deviceRepo repository.DeviceRepository) (*entity.Device, error) {
		device, err := deviceRepo.LockByID(ctx, deviceID)
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, domainerrors.ErrDeviceNotFound
		}

		return device, errors.Wrap(err, "failed to lock device")
	}, controllerID, alertType, message)
}

// RaiseFromController handles an alert reported directly by a controller for one of its channels.
func (srv *alertService) RaiseFromController(ctx context.Context, controllerID, channel, alertType, message string) (*usecase.RaiseOutput, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("channel is required")
	}

	controller, err := srv.controllerRepo.FindByControllerID(ctx, controllerID)
	if errors.Is(err, repository.ErrControllerNotFound) {
		return nil, domainerrors.ErrControllerNotRegistered
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find controller")
	}

	return srv.raise(ctx, entity.SourceController, func(deviceRepo repository.DeviceRepository) (*entity.Device, error) {
		device, err := deviceRepo.FindByControllerAndPin(ctx, controller.ID, channel)
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, domainerrors.ErrDeviceNotFound.WithDetailsf("no device on channel %s", channel)
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to find channel device")
		}

		locked, err := deviceRepo.LockByID(ctx, device.ID)

		return locked, errors.Wrap(err, "failed to lock device")
	}, &controller.ID, entity.ParseAlertType(alertType), message)
}

func (srv *alertService) raise(ctx context.Context, source entity.LogSource, lockDevice func(repository.DeviceRepository) (*entity.Device, error), controllerID *uuid.UUID, alertType entity.AlertType, message string) (*usecase.RaiseOutput, error) {
	now := srv.clock.Now()
	ob := &outbox{}

	output := &usecase.RaiseOutput{}
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		ob.reset()

		device, err := lockDevice(repoFactory.NewDeviceRepository())
		if err != nil {
			return err
		}

		alert, duplicate, err := srv.gate.raiseTx(ctx, repoFactory, device, controllerID, alertType, message, source, now, ob)
		if err != nil {
			return err
		}
		output.Alert = alert
		output.Duplicate = duplicate

		return nil
	})
	if err != nil {
		return nil, err
	}

	if output.Duplicate {
		srv.log(ctx).Debug("Alert suppressed by cooldown",
			slog.String("alert_id", output.Alert.ID.String()),
			slog.String("alert_type", string(alertType)))

		return output, nil
	}

	srv.log(ctx).Warn("Alert raised",
		slog.String("alert_id", output.Alert.ID.String()),
		slog.String("alert_type", string(alertType)),
		slog.String("device_id", output.Alert.DeviceID.String()))

	ob.flush(ctx, srv.fanout, srv.publisher, srv.log(ctx))

	return output, nil
}

// ListAlerts returns the alerts of the user's devices, newest first.
func (srv *alertService) ListAlerts(ctx context.Context, email string, includeResolved bool) ([]*entity.Alert, error) {
	user, err := findUserByEmail(ctx, srv.userRepo, email)
	if err != nil {
		return nil, err
	}

	alerts, err := srv.alertRepo.FindByOwner(ctx, user.ID, includeResolved)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list alerts")
	}

	return alerts, nil
}

// DismissAlert resolves an alert of one of the user's devices.
func (srv *alertService) DismissAlert(ctx context.Context, email string, alertID uuid.UUID) error {
	user, err := findUserByEmail(ctx, srv.userRepo, email)
	if err != nil {
		return err
	}

	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		alertRepo := repoFactory.NewAlertRepository()

		alert, err := alertRepo.FindByID(ctx, alertID)
		if errors.Is(err, repository.ErrAlertNotFound) {
			return domainerrors.ErrAlertNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to find alert")
		}

		device, err := repoFactory.NewDeviceRepository().FindByID(ctx, alert.DeviceID)
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return domainerrors.ErrAlertNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to find alert device")
		}
		if !device.IsOwnedBy(user.ID) {
			return domainerrors.ErrAlertNotFound
		}

		if err := alertRepo.Resolve(ctx, alertID); err != nil {
			return errors.Wrap(err, "failed to resolve alert")
		}

		return nil
	})
}
