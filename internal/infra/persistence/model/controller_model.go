package model

import (
	"time"

	"github.com/google/uuid"
)

// ControllerModel is the GORM-specific struct for the 'controllers' table.
type ControllerModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ControllerID string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name         string     `gorm:"type:varchar(100);not null;default:''"`
	Status       string     `gorm:"type:varchar(20);not null;default:'offline';index"`
	LastSeen     *time.Time `gorm:"index"`
	OwnerID      *uuid.UUID `gorm:"type:uuid;index"`
	RoomID       *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (ControllerModel) TableName() string {
	return "controllers"
}
