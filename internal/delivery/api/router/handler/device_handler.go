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

// DeviceHandlerParams holds dependencies for DeviceHandler, injected by Fx.
type DeviceHandlerParams struct {
	fx.In

	IdentityUC usecase.IdentityUsecase
	Logger     *slog.Logger
}

// DeviceHandler holds dependencies for device-related handlers
type DeviceHandler struct {
	identityUC usecase.IdentityUsecase
	logger     *slog.Logger
}

// NewDeviceHandler is the constructor for DeviceHandler
func NewDeviceHandler(params DeviceHandlerParams) *DeviceHandler {
	return &DeviceHandler{
		identityUC: params.IdentityUC,
		logger:     params.Logger,
	}
}

// PairDeviceRequest represents the request body for pairing a device
type PairDeviceRequest struct {
	Email       string     `json:"email" validate:"required,email"`
	DeviceID    string     `json:"device_id" validate:"required"`
	PairingCode string     `json:"pairing_code" validate:"required,len=6,numeric"`
	RoomID      *uuid.UUID `json:"room_id"`
	Name        string     `json:"name" validate:"max=100"`
	EndpointURL string     `json:"endpoint_url" validate:"omitempty,url"`
	DeviceType  string     `json:"device_type" validate:"omitempty,oneof=socket light fan"`
}

// PairFromQRRequest represents the request body for pairing with a scanned QR code
type PairFromQRRequest struct {
	Email       string     `json:"email" validate:"required,email"`
	QRData      string     `json:"qr_data" validate:"required"`
	RoomID      *uuid.UUID `json:"room_id"`
	Name        string     `json:"name" validate:"max=100"`
	EndpointURL string     `json:"endpoint_url" validate:"omitempty,url"`
	DeviceType  string     `json:"device_type" validate:"omitempty,oneof=socket light fan"`
}

// ListDevices returns the paired devices of a user
func (h *DeviceHandler) ListDevices(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return response.BadRequest(c, "VALIDATION_ERROR", "email is required")
	}

	devices, err := h.identityUC.ListDevices(c.Request().Context(), email)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, devices)
}

// PairDevice handles pairing with a device id and pairing code
func (h *DeviceHandler) PairDevice(c echo.Context) error {
	var req PairDeviceRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid pairing input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	device, err := h.identityUC.ReconcilePairing(c.Request().Context(), &usecase.PairDeviceInput{
		Email:       req.Email,
		DeviceID:    req.DeviceID,
		PairingCode: req.PairingCode,
		RoomID:      req.RoomID,
		DisplayName: req.Name,
		EndpointURL: req.EndpointURL,
		DeviceType:  req.DeviceType,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, device)
}

// PairFromQR handles pairing with a scanned pairing QR payload
func (h *DeviceHandler) PairFromQR(c echo.Context) error {
	var req PairFromQRRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid pairing input")
	}

	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	device, err := h.identityUC.PairFromQR(c.Request().Context(), &usecase.PairFromQRInput{
		Email:       req.Email,
		QRData:      req.QRData,
		RoomID:      req.RoomID,
		DisplayName: req.Name,
		EndpointURL: req.EndpointURL,
		DeviceType:  req.DeviceType,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, device)
}

// UnpairDevice releases a device owned by the user
func (h *DeviceHandler) UnpairDevice(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return response.BadRequest(c, "VALIDATION_ERROR", "email is required")
	}

	if err := h.identityUC.UnpairDevice(c.Request().Context(), email, c.Param("deviceId")); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Device unpaired successfully"})
}

// PairingQR renders the pairing QR code of an unpaired device as PNG
func (h *DeviceHandler) PairingQR(c echo.Context) error {
	png, err := h.identityUC.PairingQR(c.Request().Context(), c.Param("deviceId"))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}
