// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/usecase"
	"homeswitch/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	pairingCodeLength   = 6
	pairingCodeAttempts = 20
)

type pendingEvent struct {
	userID    uuid.UUID
	eventType usecase.EventType
	data      any
}

// outbox collects side effects produced inside a transaction. They are
// released only after the transaction commits.
type outbox struct {
	events []pendingEvent
	alerts []*service.AlertEvent
}

func (ob *outbox) publish(userID *uuid.UUID, eventType usecase.EventType, data any) {
	if userID == nil {
		return
	}
	ob.events = append(ob.events, pendingEvent{userID: *userID, eventType: eventType, data: data})
}

func (ob *outbox) pushAlert(event *service.AlertEvent) {
	ob.alerts = append(ob.alerts, event)
}

func (ob *outbox) reset() {
	ob.events = nil
	ob.alerts = nil
}

// flush hands the collected events to the fan-out and the alert publisher.
// Publisher failures are logged and never returned.
func (ob *outbox) flush(ctx context.Context, fanout usecase.FanoutUsecase, publisher service.EventPublisher, logger *slog.Logger) {
	for _, ev := range ob.events {
		fanout.Publish(ctx, ev.userID, ev.eventType, ev.data)
	}

	if publisher == nil {
		return
	}
	for _, alert := range ob.alerts {
		if err := publisher.PublishAlertEvent(ctx, alert); err != nil {
			logger.Warn("Failed to publish alert event",
				slog.String("alert_id", alert.AlertID),
				slog.Any("error", err))
		}
	}
}

func deviceStatusData(device *entity.Device) *usecase.DeviceStatusData {
	return &usecase.DeviceStatusData{
		DeviceID:     device.DeviceID,
		Status:       string(device.Status),
		CurrentValue: device.CurrentValue,
		LastSeen:     device.LastSeen,
	}
}

func commandUpdateData(command *entity.Command, deviceID string, now time.Time, timeout time.Duration) *usecase.CommandUpdateData {
	data := &usecase.CommandUpdateData{
		CommandID: command.ID.String(),
		DeviceID:  deviceID,
		Status:    string(command.Status),
		Error:     command.Error,
	}
	if !command.Status.IsTerminal() {
		remaining := command.TimeRemaining(now, timeout)
		data.TimeRemaining = &remaining
	}

	return data
}

// newActivityEntry builds an audit record scoped to a device and its owner.
func newActivityEntry(device *entity.Device, logType entity.LogType, action entity.ActionType, source entity.LogSource, message string, now time.Time) *entity.ActivityLogEntry {
	entry := &entity.ActivityLogEntry{
		ID:         uuid.New(),
		LogType:    logType,
		ActionType: action,
		Message:    message,
		Source:     source,
		CreatedAt:  now,
	}
	if device != nil {
		id := device.ID
		entry.DeviceID = &id
		entry.UserID = device.OwnerID
		entry.ControllerID = device.ControllerID
		entry.RoomID = device.RoomID
	}

	return entry
}

// findUserByEmail resolves the calling user, mapping absence to a domain error.
func findUserByEmail(ctx context.Context, userRepo repository.UserRepository, email string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("email is required")
	}

	user, err := userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user by email")
	}

	return user, nil
}

// newPairingCode draws six-digit codes until one is not held by any device.
func newPairingCode(ctx context.Context, deviceRepo repository.DeviceRepository) (string, error) {
	for range pairingCodeAttempts {
		code, err := util.RandomDigits(pairingCodeLength)
		if err != nil {
			return "", errors.Wrap(err, "failed to generate pairing code")
		}

		exists, err := deviceRepo.PairingCodeExists(ctx, code)
		if err != nil {
			return "", errors.Wrap(err, "failed to check pairing code")
		}
		if !exists {
			return code, nil
		}
	}

	return "", errors.New("no free pairing code after retries")
}
