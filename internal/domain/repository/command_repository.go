package repository

import (
	"context"
	"errors"
	"time"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

var ErrCommandNotFound = errors.New("command not found")

// CommandRepository defines persistence for the per-device command queue.
type CommandRepository interface {
	CreateCommand(ctx context.Context, command *entity.Command) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Command, error)

	// LockByID reads the command row with an exclusive lock.
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Command, error)

	// FindOutstandingForDevice returns the oldest non-terminal command of a
	// device, or ErrCommandNotFound.
	FindOutstandingForDevice(ctx context.Context, deviceID uuid.UUID) (*entity.Command, error)

	// LockOutstandingForController locks up to limit oldest non-terminal
	// commands of a controller.
	LockOutstandingForController(ctx context.Context, controllerID uuid.UUID, limit int) ([]*entity.Command, error)

	// MarkExecuting moves the given pending commands to executing.
	MarkExecuting(ctx context.Context, ids []uuid.UUID) error

	// FailStale marks non-terminal commands created at or before cutoff as
	// failed with errMsg and returns them. A nil controllerID covers all controllers.
	FailStale(ctx context.Context, controllerID *uuid.UUID, cutoff, now time.Time, errMsg string) ([]*entity.Command, error)

	UpdateCommand(ctx context.Context, command *entity.Command) error

	// HasRecentSuccess reports whether another command with the same device
	// and action completed at or after since.
	HasRecentSuccess(ctx context.Context, deviceID uuid.UUID, action string, since time.Time, excludeID uuid.UUID) (bool, error)
}
