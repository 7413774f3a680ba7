package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AlertType is the closed set of fault categories.
type AlertType string

const (
	AlertOverload     AlertType = "overload"
	AlertShortCircuit AlertType = "short_circuit"
	AlertOffline      AlertType = "offline"
	AlertHighCurrent  AlertType = "high_current"
	AlertFault        AlertType = "fault" // Unrecognized lockout reasons.
)

// ParseAlertType maps a controller-supplied reason onto the closed set.
func ParseAlertType(raw string) AlertType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "short_circuit", "short", "shortcircuit":
		return AlertShortCircuit
	case "overload", "over_current", "overcurrent":
		return AlertOverload
	case "high_current", "highcurrent":
		return AlertHighCurrent
	case "offline":
		return AlertOffline
	default:
		return AlertFault
	}
}

// Title is the human readable headline for notifications.
func (t AlertType) Title() string {
	switch t {
	case AlertOverload:
		return "Overload detected"
	case AlertShortCircuit:
		return "Short circuit detected"
	case AlertOffline:
		return "Device offline"
	case AlertHighCurrent:
		return "High current detected"
	default:
		return "Device fault"
	}
}

// Urgent reports whether the fault can damage wiring and needs immediate attention.
func (t AlertType) Urgent() bool {
	return t == AlertShortCircuit || t == AlertOverload
}

// LogType is the activity log severity for an alert of this type.
func (t AlertType) LogType() LogType {
	if t == AlertShortCircuit {
		return LogError
	}

	return LogWarning
}

// Alert is a fault raised against a device. Alerts of one type are
// deduplicated per device within the cooldown window.
type Alert struct {
	ID           uuid.UUID  `json:"id"`
	DeviceID     uuid.UUID  `json:"device_id"`
	ControllerID *uuid.UUID `json:"controller_id,omitempty"`
	AlertType    AlertType  `json:"alert_type"`
	Message      string     `json:"message"`
	Resolved     bool       `json:"resolved"`
	CreatedAt    time.Time  `json:"created_at"`
}
