package entity

import (
	"time"

	"github.com/google/uuid"
)

const DefaultRoomIcon = "home"

// Room groups devices and controllers for one owner. Names are unique per owner.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
