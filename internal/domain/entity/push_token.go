package entity

import (
	"time"

	"github.com/google/uuid"
)

// PushToken is a mobile installation registered for alert push notifications.
type PushToken struct {
	ID             uuid.UUID `json:"id"`              // The Global Unique Identifier (GUID) for the token record.
	UserID         uuid.UUID `json:"user_id"`         // The ID of the user who owns this installation.
	FCMToken       string    `json:"fcm_token"`       // Firebase Cloud Messaging token for push notifications.
	InstallationID string    `json:"installation_id"` // Unique installation identifier from the client.
	Platform       string    `json:"platform"`        // Platform (ios, android).
	IsActive       bool      `json:"is_active"`       // Indicates if this token should receive notifications.
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
