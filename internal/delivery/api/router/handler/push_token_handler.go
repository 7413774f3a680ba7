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

// PushTokenHandlerParams holds dependencies for PushTokenHandler, injected by Fx.
type PushTokenHandlerParams struct {
	fx.In

	PushTokenUC usecase.PushTokenUsecase
	Logger      *slog.Logger
}

// PushTokenHandler holds dependencies for push token handlers
type PushTokenHandler struct {
	pushTokenUC usecase.PushTokenUsecase
	logger      *slog.Logger
}

// NewPushTokenHandler is the constructor for PushTokenHandler
func NewPushTokenHandler(params PushTokenHandlerParams) *PushTokenHandler {
	return &PushTokenHandler{
		pushTokenUC: params.PushTokenUC,
		logger:      params.Logger,
	}
}

// RegisterPushTokenRequest represents the request body for registering an installation
type RegisterPushTokenRequest struct {
	Email          string `json:"email" validate:"required,email"`
	FCMToken       string `json:"fcm_token" validate:"required"`
	InstallationID string `json:"installation_id" validate:"required"`
	Platform       string `json:"platform" validate:"required,oneof=ios android"`
}

// RegisterPushToken handles push token registration
func (h *PushTokenHandler) RegisterPushToken(c echo.Context) error {
	var req RegisterPushTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid push token input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	token, err := h.pushTokenUC.RegisterPushToken(c.Request().Context(), req.Email, &usecase.PushTokenInput{
		FCMToken:       req.FCMToken,
		InstallationID: req.InstallationID,
		Platform:       req.Platform,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, token)
}

// DeactivatePushToken handles removing an installation
func (h *PushTokenHandler) DeactivatePushToken(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return response.BadRequest(c, "VALIDATION_ERROR", "email is required")
	}

	tokenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid push token ID")
	}

	if err := h.pushTokenUC.DeactivatePushToken(c.Request().Context(), email, tokenID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Push token deactivated successfully"})
}
