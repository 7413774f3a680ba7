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

// controllerRepository implements the repository.ControllerRepository interface.
type controllerRepository struct {
	db *gorm.DB
}

// NewControllerRepository is the constructor for controllerRepository.
func NewControllerRepository(db *gorm.DB) repository.ControllerRepository {
	return &controllerRepository{db: db}
}

// CreateController persists a newly self-registered controller.
func (repo *controllerRepository) CreateController(ctx context.Context, controller *entity.Controller) error {
	controllerM := fromControllerDomain(controller)

	if err := repo.db.WithContext(ctx).Create(controllerM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateController
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create controller")
	}

	controller.CreatedAt = controllerM.CreatedAt
	controller.UpdatedAt = controllerM.UpdatedAt

	return nil
}

// FindByControllerID looks a controller up by its self-reported identifier.
func (repo *controllerRepository) FindByControllerID(ctx context.Context, controllerID string) (*entity.Controller, error) {
	var controllerM model.ControllerModel

	if err := repo.db.WithContext(ctx).
		Where("controller_id = ?", controllerID).
		First(&controllerM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrControllerNotFound
		}

		return nil, errors.Wrap(err, "failed to find controller by controller id")
	}

	return toControllerDomain(&controllerM), nil
}

// FindByID retrieves a controller by primary key.
func (repo *controllerRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Controller, error) {
	var controllerM model.ControllerModel

	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&controllerM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrControllerNotFound
		}

		return nil, errors.Wrap(err, "failed to find controller by id")
	}

	return toControllerDomain(&controllerM), nil
}

// FindByOwner returns the controllers owned by a user, oldest first.
func (repo *controllerRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entity.Controller, error) {
	var controllerModels []*model.ControllerModel

	if err := repo.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&controllerModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find controllers by owner")
	}

	return toControllerDomains(controllerModels), nil
}

// ListAll returns every registered controller.
func (repo *controllerRepository) ListAll(ctx context.Context) ([]*entity.Controller, error) {
	var controllerModels []*model.ControllerModel

	if err := repo.db.WithContext(ctx).Order("created_at ASC").Find(&controllerModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list controllers")
	}

	return toControllerDomains(controllerModels), nil
}

// UpdateController saves name, status, liveness and ownership.
func (repo *controllerRepository) UpdateController(ctx context.Context, controller *entity.Controller) error {
	result := repo.db.WithContext(ctx).
		Model(&model.ControllerModel{}).
		Where("id = ?", controller.ID).
		Updates(map[string]any{
			"name":      controller.Name,
			"status":    string(controller.Status),
			"last_seen": controller.LastSeen,
			"owner_id":  controller.OwnerID,
			"room_id":   controller.RoomID,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update controller")
	}

	if result.RowsAffected == 0 {
		return repository.ErrControllerNotFound
	}

	return nil
}

// AssignOwnerIfUnowned backfills ownership only while owner_id is still NULL,
// so concurrent first pairings settle on a single owner.
func (repo *controllerRepository) AssignOwnerIfUnowned(ctx context.Context, id, ownerID uuid.UUID, roomID *uuid.UUID) (bool, error) {
	updates := map[string]any{"owner_id": ownerID}
	if roomID != nil {
		updates["room_id"] = *roomID
	}

	result := repo.db.WithContext(ctx).
		Model(&model.ControllerModel{}).
		Where("id = ? AND owner_id IS NULL", id).
		Updates(updates)
	if result.Error != nil {
		return false, domainerrors.NewDatabaseExecuteError(result.Error, "failed to assign controller owner")
	}

	return result.RowsAffected > 0, nil
}

// Touch marks the controller online with the given heartbeat time.
func (repo *controllerRepository) Touch(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.ControllerModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":    string(entity.ControllerOnline),
			"last_seen": seenAt,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to touch controller")
	}

	if result.RowsAffected == 0 {
		return repository.ErrControllerNotFound
	}

	return nil
}

// MarkOfflineSince flips online controllers last seen before cutoff to offline.
func (repo *controllerRepository) MarkOfflineSince(ctx context.Context, cutoff time.Time) ([]*entity.Controller, error) {
	var stale []*model.ControllerModel

	if err := forUpdate(repo.db.WithContext(ctx)).
		Where("status = ? AND last_seen < ?", string(entity.ControllerOnline), cutoff).
		Find(&stale).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find stale controllers")
	}

	if len(stale) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(stale))
	for _, controllerM := range stale {
		ids = append(ids, controllerM.ID)
		controllerM.Status = string(entity.ControllerOffline)
	}

	if err := repo.db.WithContext(ctx).
		Model(&model.ControllerModel{}).
		Where("id IN ?", ids).
		Update("status", string(entity.ControllerOffline)).Error; err != nil {
		return nil, errors.Wrap(err, "failed to mark controllers offline")
	}

	return toControllerDomains(stale), nil
}

// --- Mapper Functions ---

func toControllerDomains(models []*model.ControllerModel) []*entity.Controller {
	controllers := make([]*entity.Controller, 0, len(models))
	for _, controllerM := range models {
		controllers = append(controllers, toControllerDomain(controllerM))
	}

	return controllers
}

func toControllerDomain(data *model.ControllerModel) *entity.Controller {
	if data == nil {
		return nil
	}

	return &entity.Controller{
		ID:           data.ID,
		ControllerID: data.ControllerID,
		Name:         data.Name,
		Status:       entity.ControllerStatus(data.Status),
		LastSeen:     data.LastSeen,
		OwnerID:      data.OwnerID,
		RoomID:       data.RoomID,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

func fromControllerDomain(data *entity.Controller) *model.ControllerModel {
	if data == nil {
		return nil
	}

	return &model.ControllerModel{
		ID:           data.ID,
		ControllerID: data.ControllerID,
		Name:         data.Name,
		Status:       string(data.Status),
		LastSeen:     data.LastSeen,
		OwnerID:      data.OwnerID,
		RoomID:       data.RoomID,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
