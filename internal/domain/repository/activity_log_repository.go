package repository

import (
	"context"

	"homeswitch/internal/domain/entity"

	"github.com/google/uuid"
)

// ActivityLogRepository is append-only.
type ActivityLogRepository interface {
	CreateEntry(ctx context.Context, entry *entity.ActivityLogEntry) error

	// FindByUser lists a user's entries in creation order.
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.ActivityLogEntry, error)
}
