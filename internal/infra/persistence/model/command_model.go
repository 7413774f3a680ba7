package model

import (
	"time"

	"github.com/google/uuid"
)

// CommandModel is the GORM-specific struct for the 'commands' table.
type CommandModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DeviceID     *uuid.UUID `gorm:"type:uuid;index:idx_commands_device_status"`
	ControllerID uuid.UUID  `gorm:"type:uuid;not null;index:idx_commands_controller_status"`
	Action       string     `gorm:"type:varchar(50);not null"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_commands_device_status;index:idx_commands_controller_status"`
	Error        string     `gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time  `gorm:"not null;index"`
	ExecutedAt   *time.Time
}

// TableName explicitly sets the table name for GORM.
func (CommandModel) TableName() string {
	return "commands"
}
