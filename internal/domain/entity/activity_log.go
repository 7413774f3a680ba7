package entity

import (
	"time"

	"github.com/google/uuid"
)

type LogType string

const (
	LogInfo    LogType = "info"
	LogWarning LogType = "warning"
	LogError   LogType = "error"
)

type ActionType string

const (
	ActionDeviceControl ActionType = "device_control"
	ActionPairing       ActionType = "pairing"
	ActionSystemAlert   ActionType = "system_alert"
	ActionAccount       ActionType = "account"
)

type LogSource string

const (
	SourceUser       LogSource = "user"
	SourceController LogSource = "controller"
	SourceSystem     LogSource = "system"
)

// ActivityLogEntry is an append-only audit record.
type ActivityLogEntry struct {
	ID           uuid.UUID      `json:"id"`
	UserID       *uuid.UUID     `json:"user_id,omitempty"`
	DeviceID     *uuid.UUID     `json:"device_id,omitempty"`
	ControllerID *uuid.UUID     `json:"controller_id,omitempty"`
	RoomID       *uuid.UUID     `json:"room_id,omitempty"`
	LogType      LogType        `json:"log_type"`
	ActionType   ActionType     `json:"action_type"`
	Message      string         `json:"message"`
	Details      map[string]any `json:"details,omitempty"`
	Source       LogSource      `json:"source"`
	CreatedAt    time.Time      `json:"created_at"`
}
