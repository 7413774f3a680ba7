package handler

import (
	"log/slog"
	"net/http"

	"homeswitch/internal/delivery/api/response"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// CommandHandlerParams holds dependencies for CommandHandler, injected by Fx.
type CommandHandlerParams struct {
	fx.In

	CommandUC usecase.CommandUsecase
	Logger    *slog.Logger
}

// CommandHandler serves command submission and outcome reporting
type CommandHandler struct {
	commandUC usecase.CommandUsecase
	logger    *slog.Logger
}

// NewCommandHandler is the constructor for CommandHandler
func NewCommandHandler(params CommandHandlerParams) *CommandHandler {
	return &CommandHandler{
		commandUC: params.CommandUC,
		logger:    params.Logger,
	}
}

// SubmitCommandRequest is a client request to switch a device
type SubmitCommandRequest struct {
	Action string `json:"action" validate:"required,max=50"`
}

// ReportOutcomeRequest is the result of a command reported by a controller
type ReportOutcomeRequest struct {
	Success *bool  `json:"success" validate:"required"`
	Error   string `json:"error"`
}

// EmergencyShutdownRequest identifies the user whose devices are switched off
type EmergencyShutdownRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SubmitCommand queues a command for a device
func (h *CommandHandler) SubmitCommand(c echo.Context) error {
	var req SubmitCommandRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid command input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	command, err := h.commandUC.Submit(c.Request().Context(), c.Param("deviceId"), req.Action)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusAccepted, map[string]any{
		"command_id": command.ID,
		"status":     command.Status,
	})
}

// ReportOutcome finalizes a command
func (h *CommandHandler) ReportOutcome(c echo.Context) error {
	commandID, err := uuid.Parse(c.Param("commandId"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid command ID")
	}

	var req ReportOutcomeRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid outcome input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	command, err := h.commandUC.ReportOutcome(c.Request().Context(), commandID, *req.Success, req.Error)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, command)
}

// CommandStatus returns the current state of a command
func (h *CommandHandler) CommandStatus(c echo.Context) error {
	commandID, err := uuid.Parse(c.Param("commandId"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid command ID")
	}

	output, err := h.commandUC.CommandStatus(c.Request().Context(), commandID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"command_id":     output.Command.ID,
		"device_id":      output.DeviceID,
		"action":         output.Command.Action,
		"status":         output.Command.Status,
		"error":          output.Command.Error,
		"created_at":     output.Command.CreatedAt,
		"executed_at":    output.Command.ExecutedAt,
		"time_remaining": output.TimeRemaining,
	})
}

// EmergencyShutdown switches off every device of the user that is on
func (h *CommandHandler) EmergencyShutdown(c echo.Context) error {
	var req EmergencyShutdownRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid shutdown input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	results, err := h.commandUC.EmergencyShutdown(c.Request().Context(), req.Email)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{"devices": results})
}
