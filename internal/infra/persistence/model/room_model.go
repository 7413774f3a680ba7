package model

import (
	"time"

	"github.com/google/uuid"
)

// RoomModel is the GORM-specific struct for the 'rooms' table.
type RoomModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_rooms_owner_name"`
	Icon      string    `gorm:"type:varchar(50);not null;default:'home'"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rooms_owner_name"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (RoomModel) TableName() string {
	return "rooms"
}
