package usecase

import (
	"context"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

// RaiseOutput is the alert that tracks the condition; Duplicate reports that
// an existing alert inside the cooldown was returned instead of a new one.
type RaiseOutput struct {
	Alert     *entity.Alert
	Duplicate bool
}

// AlertUsecase raises deduplicated alerts and lets users review them.
type AlertUsecase interface {
	Raise(ctx context.Context, deviceID uuid.UUID, controllerID *uuid.UUID, alertType entity.AlertType, message string) (*RaiseOutput, error)
	// RaiseFromController resolves the device by controller channel and raises a controller-reported alert.
	RaiseFromController(ctx context.Context, controllerID, channel, alertType, message string) (*RaiseOutput, error)
	ListAlerts(ctx context.Context, email string, includeResolved bool) ([]*entity.Alert, error)
	DismissAlert(ctx context.Context, email string, alertID uuid.UUID) error
}
