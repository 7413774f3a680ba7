package usecase

import (
	"context"
	"time"

	"homeswitch/internal/domain/service"

	"github.com/google/uuid"
)

// EventType names a fan-out event kind.
type EventType string

const (
	EventDeviceStatus      EventType = "device_status"
	EventCommandUpdate     EventType = "command_update"
	EventAlertNotification EventType = "alert_notification"
)

// Toast kinds carried in alert_notification next to the alert types.
const (
	ToastSuccess       = "success"
	ToastCommandFailed = "command_failed"
)

// Envelope is the wire format of every event published to a user group.
type Envelope struct {
	Type      EventType `json:"type"`
	Timestamp string    `json:"timestamp"`
	Data      any       `json:"data"`
}

type DeviceStatusData struct {
	DeviceID     string     `json:"device_id"`
	Status       string     `json:"status"`
	CurrentValue *float64   `json:"current_value"`
	LastSeen     *time.Time `json:"last_seen"`
}

type CommandUpdateData struct {
	CommandID     string `json:"command_id"`
	DeviceID      string `json:"device_id,omitempty"`
	Status        string `json:"status"`
	TimeRemaining *int   `json:"time_remaining,omitempty"`
	Error         string `json:"error,omitempty"`
}

type AlertNotificationData struct {
	AlertType string `json:"alert_type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	DeviceID  string `json:"device_id,omitempty"`
}

// FanoutUsecase delivers events to every live session of a user.
type FanoutUsecase interface {
	// Publish enqueues an event for the user's group. It never blocks on the
	// transport and never fails the caller.
	Publish(ctx context.Context, userID uuid.UUID, eventType EventType, data any)
	// Subscribe attaches a session of the user identified by email.
	Subscribe(ctx context.Context, email string) (service.Subscription, error)
}
