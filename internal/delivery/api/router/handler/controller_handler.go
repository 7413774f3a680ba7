package handler

import (
	"log/slog"
	"net/http"

	"homeswitch/internal/delivery/api/response"
	"homeswitch/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// ControllerHandlerParams holds dependencies for ControllerHandler, injected by Fx.
type ControllerHandlerParams struct {
	fx.In

	IdentityUC usecase.IdentityUsecase
	CommandUC  usecase.CommandUsecase
	StatusUC   usecase.StatusUsecase
	AlertUC    usecase.AlertUsecase
	Logger     *slog.Logger
}

// ControllerHandler serves the endpoints called by field controllers
type ControllerHandler struct {
	identityUC usecase.IdentityUsecase
	commandUC  usecase.CommandUsecase
	statusUC   usecase.StatusUsecase
	alertUC    usecase.AlertUsecase
	logger     *slog.Logger
}

// NewControllerHandler is the constructor for ControllerHandler
func NewControllerHandler(params ControllerHandlerParams) *ControllerHandler {
	return &ControllerHandler{
		identityUC: params.IdentityUC,
		commandUC:  params.CommandUC,
		statusUC:   params.StatusUC,
		alertUC:    params.AlertUC,
		logger:     params.Logger,
	}
}

// RegisterControllerRequest is the self-registration body of a controller
type RegisterControllerRequest struct {
	ControllerID string   `json:"controller_id" validate:"required,max=100"`
	Channels     []string `json:"channels" validate:"dive,required,max=50"`
	Name         string   `json:"name" validate:"max=100"`
}

// ReportStatusRequest carries the state of every channel of a controller
type ReportStatusRequest struct {
	Channels map[string]usecase.ChannelStatus `json:"channels" validate:"required"`
}

// RaiseAlertRequest is an alert reported by a controller for one of its channels
type RaiseAlertRequest struct {
	Channel   string `json:"channel" validate:"required"`
	AlertType string `json:"alert_type" validate:"required"`
	Message   string `json:"message"`
}

// RegisterController handles controller self-registration
func (h *ControllerHandler) RegisterController(c echo.Context) error {
	var req RegisterControllerRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	output, err := h.identityUC.RegisterController(c.Request().Context(), &usecase.RegisterControllerInput{
		ControllerID: req.ControllerID,
		Channels:     req.Channels,
		Name:         req.Name,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"controller":      output.Controller,
		"devices_created": output.DevicesCreated,
	})
}

// PollCommands hands the oldest outstanding commands to the controller
func (h *ControllerHandler) PollCommands(c echo.Context) error {
	commands, err := h.commandUC.Poll(c.Request().Context(), c.Param("controllerId"))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{"commands": commands})
}

// ReportStatus handles a controller heartbeat with channel states
func (h *ControllerHandler) ReportStatus(c echo.Context) error {
	var req ReportStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid status report")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	output, err := h.statusUC.ReportStatus(c.Request().Context(), c.Param("controllerId"), req.Channels)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, output)
}

// RaiseAlert handles an alert reported by a controller
func (h *ControllerHandler) RaiseAlert(c echo.Context) error {
	var req RaiseAlertRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid alert input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	output, err := h.alertUC.RaiseFromController(c.Request().Context(), c.Param("controllerId"), req.Channel, req.AlertType, req.Message)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	status := http.StatusCreated
	if output.Duplicate {
		status = http.StatusOK
	}

	return response.Success(c, status, map[string]any{
		"alert_id":  output.Alert.ID,
		"duplicate": output.Duplicate,
	})
}
