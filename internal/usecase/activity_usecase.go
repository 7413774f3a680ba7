package usecase

import (
	"context"

	"homeswitch/internal/domain/entity"
)

// ActivityUsecase lists the audit trail of a user.
type ActivityUsecase interface {
	ListActivity(ctx context.Context, email string, limit, offset int) ([]*entity.ActivityLogEntry, error)
}
