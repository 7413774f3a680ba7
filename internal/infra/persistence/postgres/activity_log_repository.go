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

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository is the constructor for activityLogRepository.
func NewActivityLogRepository(db *gorm.DB) repository.ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (repo *activityLogRepository) CreateEntry(ctx context.Context, entry *entity.ActivityLogEntry) error {
	if err := repo.db.WithContext(ctx).Create(fromActivityLogDomain(entry)).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create activity log entry")
	}

	return nil
}

// FindByUser lists a user's entries in creation order.
func (repo *activityLogRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.ActivityLogEntry, error) {
	var entryModels []*model.ActivityLogModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&entryModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find activity log entries")
	}

	entries := make([]*entity.ActivityLogEntry, 0, len(entryModels))
	for _, entryM := range entryModels {
		entries = append(entries, toActivityLogDomain(entryM))
	}

	return entries, nil
}

func toActivityLogDomain(data *model.ActivityLogModel) *entity.ActivityLogEntry {
	return &entity.ActivityLogEntry{
		ID:           data.ID,
		UserID:       data.UserID,
		DeviceID:     data.DeviceID,
		ControllerID: data.ControllerID,
		RoomID:       data.RoomID,
		LogType:      entity.LogType(data.LogType),
		ActionType:   entity.ActionType(data.ActionType),
		Message:      data.Message,
		Details:      data.Details,
		Source:       entity.LogSource(data.Source),
		CreatedAt:    data.CreatedAt,
	}
}

func fromActivityLogDomain(data *entity.ActivityLogEntry) *model.ActivityLogModel {
	return &model.ActivityLogModel{
		ID:           data.ID,
		UserID:       data.UserID,
		DeviceID:     data.DeviceID,
		ControllerID: data.ControllerID,
		RoomID:       data.RoomID,
		LogType:      string(data.LogType),
		ActionType:   string(data.ActionType),
		Message:      data.Message,
		Details:      data.Details,
		Source:       string(data.Source),
		CreatedAt:    data.CreatedAt,
	}
}
