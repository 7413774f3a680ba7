package repository

import (
	"context"
	"errors"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific errors for device persistence.
var (
	// ErrDeviceNotFound is returned when a device is not found.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDuplicateDevice is returned when the device id, pairing code or
	// (controller, hardware pin) pair is already taken.
	ErrDuplicateDevice = errors.New("device already exists")
)

// DeviceRepository defines the interface for device-related database operations.
type DeviceRepository interface {
	CreateDevice(ctx context.Context, device *entity.Device) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Device, error)

	// FindByDeviceID retrieves a device by its client-facing identifier.
	FindByDeviceID(ctx context.Context, deviceID string) (*entity.Device, error)

	// LockByID reads the device row with an exclusive lock held until the
	// surrounding transaction ends. Only meaningful inside TransactionManager.Execute.
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Device, error)

	// LockByDeviceID is LockByID keyed by the client-facing identifier.
	LockByDeviceID(ctx context.Context, deviceID string) (*entity.Device, error)

	// FindByControllerAndPin resolves a controller channel to its device.
	FindByControllerAndPin(ctx context.Context, controllerID uuid.UUID, hardwarePin string) (*entity.Device, error)

	FindByController(ctx context.Context, controllerID uuid.UUID) ([]*entity.Device, error)

	// FindPairedByOwner returns the user's paired devices ordered by name.
	FindPairedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entity.Device, error)

	// ListAll returns every device, used by provisioning reports.
	ListAll(ctx context.Context) ([]*entity.Device, error)

	UpdateDevice(ctx context.Context, device *entity.Device) error

	PairingCodeExists(ctx context.Context, code string) (bool, error)
}
