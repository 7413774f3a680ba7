package handler

import (
	"log/slog"
	"net/http"

	"homeswitch/internal/delivery/api/response"
	"homeswitch/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// UserHandlerParams holds dependencies for UserHandler, injected by Fx.
type UserHandlerParams struct {
	fx.In

	IdentityUC usecase.IdentityUsecase
	Logger     *slog.Logger
}

// UserHandler serves onboarding, profile and room endpoints
type UserHandler struct {
	identityUC usecase.IdentityUsecase
	logger     *slog.Logger
}

// NewUserHandler is the constructor for UserHandler
func NewUserHandler(params UserHandlerParams) *UserHandler {
	return &UserHandler{
		identityUC: params.IdentityUC,
		logger:     params.Logger,
	}
}

// OnboardingRequest starts onboarding for an email address
type OnboardingRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"max=150"`
}

// UpdateProfileRequest holds optional profile changes
type UpdateProfileRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	FullName    *string `json:"full_name" validate:"omitnil,max=150"`
	PhoneNumber *string `json:"phone_number" validate:"omitnil,max=20"`
}

// VerifyPhoneRequest stores a phone number and sends a test alert
type VerifyPhoneRequest struct {
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,max=20"`
}

// CreateRoomRequest creates a room for the user
type CreateRoomRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=100"`
	Icon  string `json:"icon" validate:"max=50"`
}

// Onboarding creates the user or returns the existing one
func (h *UserHandler) Onboarding(c echo.Context) error {
	var req OnboardingRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid onboarding input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.identityUC.StartOnboarding(c.Request().Context(), req.Email, req.FullName)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, user)
}

// UpdateProfile changes the name or phone number of a user
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid profile input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.identityUC.UpdateProfile(c.Request().Context(), &usecase.UpdateProfileInput{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, user)
}

// VerifyPhone queues a test alert that verifies the phone number once delivered
func (h *UserHandler) VerifyPhone(c echo.Context) error {
	var req VerifyPhoneRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid phone input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	command, err := h.identityUC.VerifyPhone(c.Request().Context(), req.Email, req.PhoneNumber)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusAccepted, map[string]any{
		"command_id": command.ID,
		"status":     command.Status,
	})
}

// CreateRoom creates a room owned by the user
func (h *UserHandler) CreateRoom(c echo.Context) error {
	var req CreateRoomRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid room input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	room, err := h.identityUC.CreateRoom(c.Request().Context(), req.Email, req.Name, req.Icon)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, room)
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}
