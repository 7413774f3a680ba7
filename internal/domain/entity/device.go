package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceType is the kind of appliance behind a channel.
type DeviceType string

const (
	DeviceTypeSocket DeviceType = "socket"
	DeviceTypeLight  DeviceType = "light"
	DeviceTypeFan    DeviceType = "fan"
)

// IsValid reports whether t is a known device type.
func (t DeviceType) IsValid() bool {
	switch t {
	case DeviceTypeSocket, DeviceTypeLight, DeviceTypeFan:
		return true
	}

	return false
}

// DeviceStatus is the last known power state.
type DeviceStatus string

const (
	DeviceOn  DeviceStatus = "on"
	DeviceOff DeviceStatus = "off"
)

// StatusFromBool maps a channel state to a DeviceStatus.
func StatusFromBool(on bool) DeviceStatus {
	if on {
		return DeviceOn
	}

	return DeviceOff
}

// Device is one controllable channel. HardwarePin is the controller-local
// channel name and never changes once the device is paired.
type Device struct {
	ID           uuid.UUID    `json:"id"`
	DeviceID     string       `json:"device_id"`    // Client-facing identifier, unique.
	HardwarePin  string       `json:"hardware_pin"` // Channel name on the controller.
	Name         string       `json:"name"`
	Type         DeviceType   `json:"type"`
	ControllerID *uuid.UUID   `json:"controller_id,omitempty"`
	OwnerID      *uuid.UUID   `json:"owner_id,omitempty"`
	RoomID       *uuid.UUID   `json:"room_id,omitempty"`
	IsPaired     bool         `json:"is_paired"`
	PairingCode  string       `json:"-"` // Six digits, globally unique.
	EndpointURL  string       `json:"endpoint_url,omitempty"`
	Status       DeviceStatus `json:"status"`
	CurrentValue *float64     `json:"current_value,omitempty"` // Amps.
	LastSeen     *time.Time   `json:"last_seen,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CanReceiveCommands reports whether commands may be queued for the device.
func (d *Device) CanReceiveCommands() bool {
	return d.IsPaired && d.ControllerID != nil
}

// IsOwnedBy reports whether userID owns the device.
func (d *Device) IsOwnedBy(userID uuid.UUID) bool {
	return d.OwnerID != nil && *d.OwnerID == userID
}

// ChannelDeviceID is the device id assigned to a channel declared by a controller.
func ChannelDeviceID(controllerID, channel string) string {
	return controllerID + "-" + channel
}

// DefaultDeviceName turns a channel name such as "living_room" into "Living Room".
func DefaultDeviceName(channel string) string {
	words := strings.FieldsFunc(channel, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	if len(words) == 0 {
		return channel
	}

	return strings.Join(words, " ")
}

// DefaultDeviceType infers the appliance type from a channel name.
func DefaultDeviceType(channel string) DeviceType {
	lower := strings.ToLower(channel)
	switch {
	case strings.Contains(lower, "fan"):
		return DeviceTypeFan
	case strings.Contains(lower, "light"), strings.Contains(lower, "lamp"):
		return DeviceTypeLight
	default:
		return DeviceTypeSocket
	}
}
