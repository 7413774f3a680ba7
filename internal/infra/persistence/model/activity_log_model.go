package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLogModel is the GORM-specific struct for the 'activity_logs' table.
type ActivityLogModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID       *uuid.UUID     `gorm:"type:uuid;index:idx_activity_logs_user_created"`
	DeviceID     *uuid.UUID     `gorm:"type:uuid"`
	ControllerID *uuid.UUID     `gorm:"type:uuid"`
	RoomID       *uuid.UUID     `gorm:"type:uuid"`
	LogType      string         `gorm:"type:varchar(10);not null;default:'info'"`
	ActionType   string         `gorm:"type:varchar(20);not null"`
	Message      string         `gorm:"type:text;not null"`
	Details      map[string]any `gorm:"type:text;serializer:json"`
	Source       string         `gorm:"type:varchar(20);not null;default:'system'"`
	CreatedAt    time.Time      `gorm:"not null;index:idx_activity_logs_user_created"`
}

// TableName explicitly sets the table name for GORM.
func (ActivityLogModel) TableName() string {
	return "activity_logs"
}
