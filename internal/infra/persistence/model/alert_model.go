package model

import (
	"time"

	"github.com/google/uuid"
)

// AlertModel is the GORM-specific struct for the 'alerts' table.
type AlertModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DeviceID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_alerts_device_type_created"`
	ControllerID *uuid.UUID `gorm:"type:uuid"`
	AlertType    string     `gorm:"type:varchar(20);not null;index:idx_alerts_device_type_created"`
	Message      string     `gorm:"type:text;not null;default:''"`
	Resolved     bool       `gorm:"not null;default:false"`
	CreatedAt    time.Time  `gorm:"not null;index:idx_alerts_device_type_created"`
}

// TableName explicitly sets the table name for GORM.
func (AlertModel) TableName() string {
	return "alerts"
}
