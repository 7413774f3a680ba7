package repository

import (
	"context"
	"errors"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrDuplicateRoom = errors.New("room already exists")
)

type RoomRepository interface {
	// CreateRoom persists a room; a duplicate (name, owner) returns ErrDuplicateRoom.
	CreateRoom(ctx context.Context, room *entity.Room) error

	FindRoomByID(ctx context.Context, id uuid.UUID) (*entity.Room, error)

	FindRoomsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entity.Room, error)
}
