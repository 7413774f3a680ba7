package repository

import (
	"context"
	"errors"
	"time"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

var ErrAlertNotFound = errors.New("alert not found")

type AlertRepository interface {
	CreateAlert(ctx context.Context, alert *entity.Alert) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Alert, error)

	// FindLatestSince returns the newest alert of a type for a device created
	// at or after since, or ErrAlertNotFound.
	FindLatestSince(ctx context.Context, deviceID uuid.UUID, alertType entity.AlertType, since time.Time) (*entity.Alert, error)

	// FindByOwner lists alerts for the devices a user owns, newest first.
	FindByOwner(ctx context.Context, ownerID uuid.UUID, includeResolved bool) ([]*entity.Alert, error)

	Resolve(ctx context.Context, id uuid.UUID) error
}
