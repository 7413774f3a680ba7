package repository

import (
	"context"
	"errors"
	"time"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	ErrControllerNotFound  = errors.New("controller not found")
	ErrDuplicateController = errors.New("controller already exists")
)

// ControllerRepository defines persistence for field controllers.
type ControllerRepository interface {
	CreateController(ctx context.Context, controller *entity.Controller) error

	// FindByControllerID looks a controller up by its self-reported identifier.
	FindByControllerID(ctx context.Context, controllerID string) (*entity.Controller, error)

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Controller, error)

	// FindByOwner returns the controllers owned by a user, oldest first.
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entity.Controller, error)

	// ListAll returns every registered controller.
	ListAll(ctx context.Context) ([]*entity.Controller, error)

	UpdateController(ctx context.Context, controller *entity.Controller) error

	// AssignOwnerIfUnowned sets the owner and room of a controller that has no
	// owner yet and reports whether it did.
	AssignOwnerIfUnowned(ctx context.Context, id, ownerID uuid.UUID, roomID *uuid.UUID) (bool, error)

	// Touch marks the controller online with the given heartbeat time.
	Touch(ctx context.Context, id uuid.UUID, seenAt time.Time) error

	// MarkOfflineSince flips online controllers last seen before cutoff to offline
	// and returns the controllers that changed.
	MarkOfflineSince(ctx context.Context, cutoff time.Time) ([]*entity.Controller, error)
}
