package postgres

import (
	"context"
	"time"

	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository is the constructor for alertRepository.
func NewAlertRepository(db *gorm.DB) repository.AlertRepository {
	return &alertRepository{db: db}
}

func (repo *alertRepository) CreateAlert(ctx context.Context, alert *entity.Alert) error {
	if err := repo.db.WithContext(ctx).Create(fromAlertDomain(alert)).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create alert")
	}

	return nil
}

func (repo *alertRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Alert, error) {
	var alertM model.AlertModel

	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&alertM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAlertNotFound
		}

		return nil, errors.Wrap(err, "failed to find alert by id")
	}

	return toAlertDomain(&alertM), nil
}

// FindLatestSince returns the newest alert of a type for a device created at or after since.
func (repo *alertRepository) FindLatestSince(ctx context.Context, deviceID uuid.UUID, alertType entity.AlertType, since time.Time) (*entity.Alert, error) {
	var alertM model.AlertModel

	if err := onPrimary(repo.db.WithContext(ctx)).
		Where("device_id = ? AND alert_type = ? AND created_at >= ?", deviceID, string(alertType), since).
		Order("created_at DESC").
		First(&alertM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAlertNotFound
		}

		return nil, errors.Wrap(err, "failed to find recent alert")
	}

	return toAlertDomain(&alertM), nil
}

// FindByOwner lists alerts for the devices a user owns, newest first.
func (repo *alertRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, includeResolved bool) ([]*entity.Alert, error) {
	query := repo.db.WithContext(ctx).
		Model(&model.AlertModel{}).
		Joins("JOIN devices ON devices.id = alerts.device_id").
		Where("devices.owner_id = ?", ownerID)
	if !includeResolved {
		query = query.Where("alerts.resolved = ?", false)
	}

	var alertModels []*model.AlertModel
	if err := query.Order("alerts.created_at DESC").Find(&alertModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find alerts by owner")
	}

	alerts := make([]*entity.Alert, 0, len(alertModels))
	for _, alertM := range alertModels {
		alerts = append(alerts, toAlertDomain(alertM))
	}

	return alerts, nil
}

func (repo *alertRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.AlertModel{}).
		Where("id = ?", id).
		Update("resolved", true)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to resolve alert")
	}

	if result.RowsAffected == 0 {
		return repository.ErrAlertNotFound
	}

	return nil
}

func toAlertDomain(data *model.AlertModel) *entity.Alert {
	return &entity.Alert{
		ID:           data.ID,
		DeviceID:     data.DeviceID,
		ControllerID: data.ControllerID,
		AlertType:    entity.AlertType(data.AlertType),
		Message:      data.Message,
		Resolved:     data.Resolved,
		CreatedAt:    data.CreatedAt,
	}
}

func fromAlertDomain(data *entity.Alert) *model.AlertModel {
	return &model.AlertModel{
		ID:           data.ID,
		DeviceID:     data.DeviceID,
		ControllerID: data.ControllerID,
		AlertType:    string(data.AlertType),
		Message:      data.Message,
		Resolved:     data.Resolved,
		CreatedAt:    data.CreatedAt,
	}
}
