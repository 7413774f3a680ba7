package impl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
)

type pushTokenService struct {
	userRepo      repository.UserRepository
	pushTokenRepo repository.PushTokenRepository
	clock         service.Clock
}

// NewPushTokenService creates a new push token service instance
func NewPushTokenService(userRepo repository.UserRepository, pushTokenRepo repository.PushTokenRepository, clock service.Clock) usecase.PushTokenUsecase {
	return &pushTokenService{
		userRepo:      userRepo,
		pushTokenRepo: pushTokenRepo,
		clock:         clock,
	}
}

// RegisterPushToken registers a new installation or refreshes the token of an existing one
func (s *pushTokenService) RegisterPushToken(ctx context.Context, email string, input *usecase.PushTokenInput) (*entity.PushToken, error) {
	if strings.TrimSpace(input.FCMToken) == "" || strings.TrimSpace(input.InstallationID) == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("fcm_token and installation_id are required")
	}

	user, err := findUserByEmail(ctx, s.userRepo, email)
	if err != nil {
		return nil, err
	}

	// Check if installation already exists for this user
	tokens, err := s.pushTokenRepo.FindPushTokensByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find push tokens by user: %w", err)
	}

	for _, token := range tokens {
		if token.InstallationID == input.InstallationID {
			if err := s.pushTokenRepo.UpdateFCMToken(ctx, token.ID, input.FCMToken); err != nil {
				return nil, fmt.Errorf("failed to update FCM token: %w", err)
			}

			updated, err := s.pushTokenRepo.FindPushTokenByID(ctx, token.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to find push token by ID: %w", err)
			}

			return updated, nil
		}
	}

	now := s.clock.Now()
	token := &entity.PushToken{
		ID:             uuid.New(),
		UserID:         user.ID,
		FCMToken:       input.FCMToken,
		InstallationID: input.InstallationID,
		Platform:       input.Platform,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.pushTokenRepo.CreatePushToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to create push token: %w", err)
	}

	return token, nil
}

// ActiveTokens returns the active installations of a user
func (s *pushTokenService) ActiveTokens(ctx context.Context, userID uuid.UUID) ([]*entity.PushToken, error) {
	tokens, err := s.pushTokenRepo.FindActivePushTokensByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find active push tokens by user: %w", err)
	}

	return tokens, nil
}

// DeactivatePushToken removes an installation owned by the user (soft delete)
func (s *pushTokenService) DeactivatePushToken(ctx context.Context, email string, tokenID uuid.UUID) error {
	user, err := findUserByEmail(ctx, s.userRepo, email)
	if err != nil {
		return err
	}

	// Fetch token to verify ownership
	token, err := s.pushTokenRepo.FindPushTokenByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrPushTokenNotFound) {
			return domainerrors.ErrPushTokenNotFound
		}

		return fmt.Errorf("failed to find push token by ID: %w", err)
	}

	if token.UserID != user.ID {
		return domainerrors.ErrPushTokenNotFound
	}

	if err := s.pushTokenRepo.DeletePushToken(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
	}

	return nil
}
