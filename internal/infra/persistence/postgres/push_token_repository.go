package postgres

import (
	"context"

	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// pushTokenRepository implements the repository.PushTokenRepository interface.
type pushTokenRepository struct {
	db *gorm.DB
}

// NewPushTokenRepository is the constructor for pushTokenRepository.
func NewPushTokenRepository(db *gorm.DB) repository.PushTokenRepository {
	return &pushTokenRepository{
		db: db,
	}
}

// CreatePushToken persists a new push registration for a user.
func (repo *pushTokenRepository) CreatePushToken(ctx context.Context, token *entity.PushToken) error {
	tokenM := fromPushTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicatePushToken
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("invalid user reference")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required push token information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create push token")
	}

	token.CreatedAt = tokenM.CreatedAt
	token.UpdatedAt = tokenM.UpdatedAt

	return nil
}

// FindPushTokenByID retrieves a registration by its unique ID.
func (repo *pushTokenRepository) FindPushTokenByID(ctx context.Context, id uuid.UUID) (*entity.PushToken, error) {
	var tokenM model.PushTokenModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPushTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to find push token by ID")
	}

	return toPushTokenDomain(&tokenM), nil
}

// FindPushTokensByUser retrieves all registrations for a user (including inactive, excluding soft-deleted).
func (repo *pushTokenRepository) FindPushTokensByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PushToken, error) {
	return repo.find(repo.db.WithContext(ctx).Where("user_id = ?", userID))
}

// FindActivePushTokensByUser retrieves all active registrations for a user.
func (repo *pushTokenRepository) FindActivePushTokensByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PushToken, error) {
	return repo.find(repo.db.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true))
}

// UpdateFCMToken replaces the FCM token of a registration and reactivates it.
func (repo *pushTokenRepository) UpdateFCMToken(ctx context.Context, id uuid.UUID, fcmToken string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.PushTokenModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"fcm_token": fcmToken,
			"is_active": true,
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update FCM token")
	}

	if result.RowsAffected == 0 {
		return repository.ErrPushTokenNotFound
	}

	return nil
}

// DeletePushToken removes a registration by its ID (soft delete).
func (repo *pushTokenRepository) DeletePushToken(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.PushTokenModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete push token")
	}

	if result.RowsAffected == 0 {
		return repository.ErrPushTokenNotFound
	}

	return nil
}

func (repo *pushTokenRepository) find(query *gorm.DB) ([]*entity.PushToken, error) {
	var tokenModels []*model.PushTokenModel

	if err := query.Order("created_at DESC").Find(&tokenModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find push tokens")
	}

	tokens := make([]*entity.PushToken, 0, len(tokenModels))
	for _, tokenM := range tokenModels {
		tokens = append(tokens, toPushTokenDomain(tokenM))
	}

	return tokens, nil
}

// --- Mapper Functions ---

func toPushTokenDomain(data *model.PushTokenModel) *entity.PushToken {
	if data == nil {
		return nil
	}

	return &entity.PushToken{
		ID:             data.ID,
		UserID:         data.UserID,
		FCMToken:       data.FCMToken,
		InstallationID: data.InstallationID,
		Platform:       data.Platform,
		IsActive:       data.IsActive,
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}

func fromPushTokenDomain(data *entity.PushToken) *model.PushTokenModel {
	if data == nil {
		return nil
	}

	return &model.PushTokenModel{
		ID:             data.ID,
		UserID:         data.UserID,
		FCMToken:       data.FCMToken,
		InstallationID: data.InstallationID,
		Platform:       data.Platform,
		IsActive:       data.IsActive,
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}
