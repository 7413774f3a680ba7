package entity

import (
	"time"

	"github.com/google/uuid"
)

// ControllerStatus is the liveness of a field controller.
type ControllerStatus string

const (
	ControllerOnline  ControllerStatus = "online"
	ControllerOffline ControllerStatus = "offline"
)

// Controller is a microcontroller that drives several device channels.
// It self-registers with an opaque ControllerID and polls for commands.
type Controller struct {
	ID           uuid.UUID        `json:"id"`
	ControllerID string           `json:"controller_id"` // Self-reported identifier, unique.
	Name         string           `json:"name"`
	Status       ControllerStatus `json:"status"`
	LastSeen     *time.Time       `json:"last_seen,omitempty"`
	OwnerID      *uuid.UUID       `json:"owner_id,omitempty"` // Backfilled from the first paired device.
	RoomID       *uuid.UUID       `json:"room_id,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// MarkSeen records a heartbeat from the controller.
func (c *Controller) MarkSeen(now time.Time) {
	c.Status = ControllerOnline
	c.LastSeen = &now
}

// DefaultControllerName derives a display name from the controller id.
func DefaultControllerName(controllerID string) string {
	suffix := controllerID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}

	return "Controller " + suffix
}
