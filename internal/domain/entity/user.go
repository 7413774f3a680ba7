// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the account that owns rooms, controllers and devices.
// Accounts are identified by email and are never hard-deleted.
type User struct {
	ID            uuid.UUID `json:"id"`             // The Global Unique Identifier (GUID) for the user.
	Email         string    `json:"email"`          // Unique contact email, used by clients to identify themselves.
	FullName      string    `json:"full_name"`      // The user's display name.
	PhoneNumber   string    `json:"phone_number"`   // Number used for GSM alerts from the controller.
	PhoneVerified bool      `json:"phone_verified"` // Set once a test alert to PhoneNumber is confirmed.
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GroupKey returns the sanitized per-user address on the event bus.
func (u *User) GroupKey() string {
	return UserGroupKey(u.ID)
}

// UserGroupKey builds the event bus group for a user id.
func UserGroupKey(userID uuid.UUID) string {
	return SanitizeGroupKey("user_" + userID.String())
}

// SanitizeGroupKey keeps [A-Za-z0-9_.-] and replaces every other byte with '_'.
func SanitizeGroupKey(raw string) string {
	out := []byte(raw)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '.', c == '-':
		default:
			out[i] = '_'
		}
	}

	return string(out)
}
