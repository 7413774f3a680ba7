package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceModel is the GORM-specific struct for the 'devices' table.
// (controller_id, hardware_pin) is unique so a channel maps to one device.
type DeviceModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DeviceID     string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	HardwarePin  string     `gorm:"type:varchar(50);not null;default:'';uniqueIndex:idx_devices_controller_pin"`
	Name         string     `gorm:"type:varchar(100);not null"`
	Type         string     `gorm:"type:varchar(20);not null;default:'socket'"`
	ControllerID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_devices_controller_pin"`
	OwnerID      *uuid.UUID `gorm:"type:uuid;index"`
	RoomID       *uuid.UUID `gorm:"type:uuid"`
	IsPaired     bool       `gorm:"not null;default:false"`
	PairingCode  string     `gorm:"type:varchar(6);not null;uniqueIndex"`
	EndpointURL  string     `gorm:"type:varchar(255);not null;default:''"`
	Status       string     `gorm:"type:varchar(10);not null;default:'off'"`
	CurrentValue *float64
	LastSeen     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (DeviceModel) TableName() string {
	return "devices"
}
