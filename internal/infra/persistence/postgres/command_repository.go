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

// commandRepository implements the repository.CommandRepository interface.
type commandRepository struct {
	db *gorm.DB
}

// NewCommandRepository is the constructor for commandRepository.
func NewCommandRepository(db *gorm.DB) repository.CommandRepository {
	return &commandRepository{db: db}
}

func nonTerminalStatuses() []string {
	return []string{string(entity.CommandPending), string(entity.CommandExecuting)}
}

// CreateCommand queues a new command.
func (repo *commandRepository) CreateCommand(ctx context.Context, command *entity.Command) error {
	if err := repo.db.WithContext(ctx).Create(fromCommandDomain(command)).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrDeviceNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create command")
	}

	return nil
}

// FindByID retrieves a command by its ID.
func (repo *commandRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Command, error) {
	return repo.first(repo.db.WithContext(ctx).Where("id = ?", id))
}

// LockByID reads the command row FOR UPDATE.
func (repo *commandRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Command, error) {
	return repo.first(forUpdate(repo.db.WithContext(ctx)).Where("id = ?", id))
}

// FindOutstandingForDevice returns the oldest non-terminal command of a device.
func (repo *commandRepository) FindOutstandingForDevice(ctx context.Context, deviceID uuid.UUID) (*entity.Command, error) {
	return repo.first(onPrimary(repo.db.WithContext(ctx)).
		Where("device_id = ? AND status IN ?", deviceID, nonTerminalStatuses()).
		Order("created_at ASC"))
}

// LockOutstandingForController locks up to limit oldest non-terminal commands of a controller.
func (repo *commandRepository) LockOutstandingForController(ctx context.Context, controllerID uuid.UUID, limit int) ([]*entity.Command, error) {
	var commandModels []*model.CommandModel

	if err := forUpdate(repo.db.WithContext(ctx)).
		Where("controller_id = ? AND status IN ?", controllerID, nonTerminalStatuses()).
		Order("created_at ASC").
		Limit(limit).
		Find(&commandModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to lock outstanding commands")
	}

	return toCommandDomains(commandModels), nil
}

// MarkExecuting moves the given pending commands to executing.
func (repo *commandRepository) MarkExecuting(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	if err := repo.db.WithContext(ctx).
		Model(&model.CommandModel{}).
		Where("id IN ? AND status = ?", ids, string(entity.CommandPending)).
		Update("status", string(entity.CommandExecuting)).Error; err != nil {
		return errors.Wrap(err, "failed to mark commands executing")
	}

	return nil
}

// FailStale marks non-terminal commands created at or before cutoff as failed.
func (repo *commandRepository) FailStale(ctx context.Context, controllerID *uuid.UUID, cutoff, now time.Time, errMsg string) ([]*entity.Command, error) {
	query := forUpdate(repo.db.WithContext(ctx)).
		Where("status IN ? AND created_at <= ?", nonTerminalStatuses(), cutoff)
	if controllerID != nil {
		query = query.Where("controller_id = ?", *controllerID)
	}

	var stale []*model.CommandModel
	if err := query.Order("created_at ASC").Find(&stale).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find stale commands")
	}

	if len(stale) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(stale))
	for _, commandM := range stale {
		ids = append(ids, commandM.ID)
		commandM.Status = string(entity.CommandFailed)
		commandM.Error = errMsg
		commandM.ExecutedAt = &now
	}

	if err := repo.db.WithContext(ctx).
		Model(&model.CommandModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":      string(entity.CommandFailed),
			"error":       errMsg,
			"executed_at": now,
		}).Error; err != nil {
		return nil, errors.Wrap(err, "failed to fail stale commands")
	}

	return toCommandDomains(stale), nil
}

// UpdateCommand saves status, error and execution time.
func (repo *commandRepository) UpdateCommand(ctx context.Context, command *entity.Command) error {
	result := repo.db.WithContext(ctx).
		Model(&model.CommandModel{}).
		Where("id = ?", command.ID).
		Updates(map[string]any{
			"status":      string(command.Status),
			"error":       command.Error,
			"executed_at": command.ExecutedAt,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update command")
	}

	if result.RowsAffected == 0 {
		return repository.ErrCommandNotFound
	}

	return nil
}

// HasRecentSuccess reports whether another command with the same device and action completed since.
func (repo *commandRepository) HasRecentSuccess(ctx context.Context, deviceID uuid.UUID, action string, since time.Time, excludeID uuid.UUID) (bool, error) {
	var count int64

	if err := onPrimary(repo.db.WithContext(ctx)).
		Model(&model.CommandModel{}).
		Where("device_id = ? AND action = ? AND status = ? AND executed_at >= ? AND id <> ?",
			deviceID, action, string(entity.CommandCompleted), since, excludeID).
		Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "failed to check recent successes")
	}

	return count > 0, nil
}

func (repo *commandRepository) first(query *gorm.DB) (*entity.Command, error) {
	var commandM model.CommandModel

	if err := query.First(&commandM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCommandNotFound
		}

		return nil, errors.Wrap(err, "failed to find command")
	}

	return toCommandDomain(&commandM), nil
}

// --- Mapper Functions ---

func toCommandDomains(models []*model.CommandModel) []*entity.Command {
	commands := make([]*entity.Command, 0, len(models))
	for _, commandM := range models {
		commands = append(commands, toCommandDomain(commandM))
	}

	return commands
}

func toCommandDomain(data *model.CommandModel) *entity.Command {
	if data == nil {
		return nil
	}

	return &entity.Command{
		ID:           data.ID,
		DeviceID:     data.DeviceID,
		ControllerID: data.ControllerID,
		Action:       data.Action,
		Status:       entity.CommandStatus(data.Status),
		Error:        data.Error,
		CreatedAt:    data.CreatedAt,
		ExecutedAt:   data.ExecutedAt,
	}
}

func fromCommandDomain(data *entity.Command) *model.CommandModel {
	if data == nil {
		return nil
	}

	return &model.CommandModel{
		ID:           data.ID,
		DeviceID:     data.DeviceID,
		ControllerID: data.ControllerID,
		Action:       data.Action,
		Status:       string(data.Status),
		Error:        data.Error,
		CreatedAt:    data.CreatedAt,
		ExecutedAt:   data.ExecutedAt,
	}
}
