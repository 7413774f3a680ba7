package usecase

import (
	"context"

	"homeswitch/internal/domain/entity"
)

// PinConflict is a hardware pin claimed by more than one device of a controller.
type PinConflict struct {
	ControllerID string   `json:"controller_id"`
	HardwarePin  string   `json:"hardware_pin"`
	DeviceIDs    []string `json:"device_ids"`
}

// PinReport summarizes how devices map onto controller channels.
type PinReport struct {
	// MissingPin lists devices attached to a controller without a channel.
	MissingPin []*entity.Device `json:"missing_pin"`
	// Fixed counts missing pins recovered from the device id.
	Fixed     int           `json:"fixed"`
	Conflicts []PinConflict `json:"conflicts"`
	// PairedWithoutController lists paired devices that cannot receive commands.
	PairedWithoutController []*entity.Device `json:"paired_without_controller"`
	Unpaired                int              `json:"unpaired"`
	Ready                   int              `json:"ready"`
}

// ProvisioningUsecase prepares stock devices and audits channel assignments.
type ProvisioningUsecase interface {
	// GenerateStock creates count unpaired devices with random ids and pairing codes.
	GenerateStock(ctx context.Context, count int) ([]*entity.Device, error)
	// CheckPins reports channel problems and, unless dryRun, recovers missing
	// pins from controller-derived device ids.
	CheckPins(ctx context.Context, dryRun bool) (*PinReport, error)
}
