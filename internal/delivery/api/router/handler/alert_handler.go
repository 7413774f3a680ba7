package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"homeswitch/internal/delivery/api/response"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AlertHandlerParams holds dependencies for AlertHandler, injected by Fx.
type AlertHandlerParams struct {
	fx.In

	AlertUC    usecase.AlertUsecase
	ActivityUC usecase.ActivityUsecase
	Logger     *slog.Logger
}

// AlertHandler serves alert review and the activity log
type AlertHandler struct {
	alertUC    usecase.AlertUsecase
	activityUC usecase.ActivityUsecase
	logger     *slog.Logger
}

// NewAlertHandler is the constructor for AlertHandler
func NewAlertHandler(params AlertHandlerParams) *AlertHandler {
	return &AlertHandler{
		alertUC:    params.AlertUC,
		activityUC: params.ActivityUC,
		logger:     params.Logger,
	}
}

// DismissAlertRequest identifies the user dismissing an alert
type DismissAlertRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ListAlerts returns the alerts of a user's devices
func (h *AlertHandler) ListAlerts(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return response.BadRequest(c, "VALIDATION_ERROR", "email is required")
	}

	includeResolved, _ := strconv.ParseBool(c.QueryParam("include_resolved"))

	alerts, err := h.alertUC.ListAlerts(c.Request().Context(), email, includeResolved)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, alerts)
}

// DismissAlert resolves an alert
func (h *AlertHandler) DismissAlert(c echo.Context) error {
	alertID, err := uuid.Parse(c.Param("alertId"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid alert ID")
	}

	var req DismissAlertRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid dismiss input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.alertUC.DismissAlert(c.Request().Context(), req.Email, alertID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Alert dismissed"})
}

// ListActivity returns a page of the user's audit trail
func (h *AlertHandler) ListActivity(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return response.BadRequest(c, "VALIDATION_ERROR", "email is required")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	entries, err := h.activityUC.ListActivity(c.Request().Context(), email, limit, offset)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, entries)
}
