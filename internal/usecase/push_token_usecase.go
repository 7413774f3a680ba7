package usecase

import (
	"context"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

// PushTokenInput represents push registration information from a mobile installation
type PushTokenInput struct {
	FCMToken       string `json:"fcm_token"`
	InstallationID string `json:"installation_id"`
	Platform       string `json:"platform"`
}

// PushTokenUsecase defines the interface for push token management use cases
type PushTokenUsecase interface {
	// RegisterPushToken registers a new installation or refreshes the token of an existing one
	RegisterPushToken(ctx context.Context, email string, input *PushTokenInput) (*entity.PushToken, error)

	// ActiveTokens returns the FCM tokens of a user's active installations
	ActiveTokens(ctx context.Context, userID uuid.UUID) ([]*entity.PushToken, error)

	// DeactivatePushToken removes an installation owned by the user
	DeactivatePushToken(ctx context.Context, email string, tokenID uuid.UUID) error
}
