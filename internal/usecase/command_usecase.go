package usecase

import (
	"context"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

// CommandStatusOutput describes a command as seen by the client.
type CommandStatusOutput struct {
	Command *entity.Command
	// DeviceID is the client-facing device identifier, empty for device-less commands.
	DeviceID string
	// TimeRemaining is the number of seconds left before the command times out; 0 once terminal.
	TimeRemaining int
}

const (
	ShutdownQueued       = "queued"
	ShutdownConflict     = "in_progress"
	ShutdownNotConnected = "not_connected"
	ShutdownFailed       = "failed"
)

// ShutdownResult is the per-device outcome of an emergency shutdown.
type ShutdownResult struct {
	DeviceID  string     `json:"device_id"`
	CommandID *uuid.UUID `json:"command_id,omitempty"`
	Outcome   string     `json:"outcome"`
	Error     string     `json:"error,omitempty"`
}

// CommandUsecase is the per-device command queue between clients and polling controllers.
type CommandUsecase interface {
	// Submit queues action for the device. A command still in flight yields a
	// *domainerrors.CommandConflictError.
	Submit(ctx context.Context, deviceID, action string) (*entity.Command, error)
	// Poll returns up to the batch size of oldest outstanding commands for the controller.
	Poll(ctx context.Context, controllerID string) ([]*entity.IssuedCommand, error)
	// ReportOutcome finalizes a command. Terminal commands are returned unchanged.
	ReportOutcome(ctx context.Context, commandID uuid.UUID, success bool, errMsg string) (*entity.Command, error)
	CommandStatus(ctx context.Context, commandID uuid.UUID) (*CommandStatusOutput, error)
	// EmergencyShutdown submits "off" for every switched-on device of the user.
	EmergencyShutdown(ctx context.Context, email string) ([]*ShutdownResult, error)
}
