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

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository is the constructor for roomRepository.
func NewRoomRepository(db *gorm.DB) repository.RoomRepository {
	return &roomRepository{db: db}
}

func (repo *roomRepository) CreateRoom(ctx context.Context, room *entity.Room) error {
	roomM := fromRoomDomain(room)

	if err := repo.db.WithContext(ctx).Create(roomM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateRoom
		}
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create room")
	}

	room.CreatedAt = roomM.CreatedAt

	return nil
}

func (repo *roomRepository) FindRoomByID(ctx context.Context, id uuid.UUID) (*entity.Room, error) {
	var roomM model.RoomModel

	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&roomM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}

		return nil, errors.Wrap(err, "failed to find room by id")
	}

	return toRoomDomain(&roomM), nil
}

func (repo *roomRepository) FindRoomsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entity.Room, error) {
	var roomModels []*model.RoomModel

	if err := repo.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&roomModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find rooms by owner")
	}

	rooms := make([]*entity.Room, 0, len(roomModels))
	for _, roomM := range roomModels {
		rooms = append(rooms, toRoomDomain(roomM))
	}

	return rooms, nil
}

func toRoomDomain(data *model.RoomModel) *entity.Room {
	return &entity.Room{
		ID:        data.ID,
		Name:      data.Name,
		Icon:      data.Icon,
		OwnerID:   data.OwnerID,
		CreatedAt: data.CreatedAt,
	}
}

func fromRoomDomain(data *entity.Room) *model.RoomModel {
	return &model.RoomModel{
		ID:        data.ID,
		Name:      data.Name,
		Icon:      data.Icon,
		OwnerID:   data.OwnerID,
		CreatedAt: data.CreatedAt,
	}
}
