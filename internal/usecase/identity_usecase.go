package usecase

import (
	"context"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

// RegisterControllerInput is the self-registration request of a controller.
type RegisterControllerInput struct {
	ControllerID string
	Channels     []string
	Name         string
}

// RegisterControllerOutput reports the registered controller and how many devices were created.
type RegisterControllerOutput struct {
	Controller     *entity.Controller
	DevicesCreated int
}

// PairDeviceInput carries a pairing request from the mobile client.
type PairDeviceInput struct {
	Email       string
	DeviceID    string
	PairingCode string
	RoomID      *uuid.UUID
	DisplayName string
	EndpointURL string
	DeviceType  string
}

// PairFromQRInput pairs using a scanned pairing QR payload instead of explicit fields.
type PairFromQRInput struct {
	Email       string
	QRData      string
	RoomID      *uuid.UUID
	DisplayName string
	EndpointURL string
	DeviceType  string
}

// UpdateProfileInput holds optional profile changes; nil leaves a field untouched.
type UpdateProfileInput struct {
	Email       string
	FullName    *string
	PhoneNumber *string
}

// DeviceView is a paired device with its room name resolved.
type DeviceView struct {
	*entity.Device
	RoomName string `json:"room_name,omitempty"`
}

// IdentityUsecase maintains users, rooms, controllers and devices and the
// ownership graph between them.
type IdentityUsecase interface {
	RegisterController(ctx context.Context, input *RegisterControllerInput) (*RegisterControllerOutput, error)
	ReconcilePairing(ctx context.Context, input *PairDeviceInput) (*entity.Device, error)
	PairFromQR(ctx context.Context, input *PairFromQRInput) (*entity.Device, error)
	UnpairDevice(ctx context.Context, email, deviceID string) error
	StartOnboarding(ctx context.Context, email, fullName string) (*entity.User, error)
	UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*entity.User, error)
	// VerifyPhone stores the number and queues a test alert on one of the user's controllers.
	VerifyPhone(ctx context.Context, email, phoneNumber string) (*entity.Command, error)
	CreateRoom(ctx context.Context, email, name, icon string) (*entity.Room, error)
	ListDevices(ctx context.Context, email string) ([]*DeviceView, error)
	// PairingQR renders the pairing QR code of an unpaired device.
	PairingQR(ctx context.Context, deviceID string) ([]byte, error)
}
