package repository

import (
	"context"
	"errors"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrPushTokenNotFound is returned when a push token is not found.
	ErrPushTokenNotFound = errors.New("push token not found")
	// ErrDuplicatePushToken is returned when the installation is already registered.
	ErrDuplicatePushToken = errors.New("push token already exists")
)

// PushTokenRepository defines persistence for mobile push registrations.
type PushTokenRepository interface {
	// CreatePushToken persists a new push registration for a user.
	CreatePushToken(ctx context.Context, token *entity.PushToken) error

	// FindPushTokenByID retrieves a registration by its unique ID.
	FindPushTokenByID(ctx context.Context, id uuid.UUID) (*entity.PushToken, error)

	// FindPushTokensByUser retrieves all registrations for a user (including inactive).
	FindPushTokensByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PushToken, error)

	// FindActivePushTokensByUser retrieves all active registrations for a user.
	FindActivePushTokensByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PushToken, error)

	// UpdateFCMToken replaces the FCM token of a registration and reactivates it.
	UpdateFCMToken(ctx context.Context, id uuid.UUID, fcmToken string) error

	// DeletePushToken removes a registration by its ID (soft delete).
	DeletePushToken(ctx context.Context, id uuid.UUID) error
}
