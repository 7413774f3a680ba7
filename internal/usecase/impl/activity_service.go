package impl

import (
	"context"
	"log/slog"

	"homeswitch/internal/domain/entity"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

type activityService struct {
	userRepo     repository.UserRepository
	activityRepo repository.ActivityLogRepository
	logger       *slog.Logger
}

// ActivityServiceParams holds dependencies for ActivityService, injected by Fx.
type ActivityServiceParams struct {
	fx.In

	UserRepo     repository.UserRepository
	ActivityRepo repository.ActivityLogRepository
	Logger       *slog.Logger
}

// NewActivityService creates a new activity service instance
func NewActivityService(params ActivityServiceParams) usecase.ActivityUsecase {
	return &activityService{
		userRepo:     params.UserRepo,
		activityRepo: params.ActivityRepo,
		logger:       params.Logger,
	}
}

// ListActivity returns a page of the user's audit trail in creation order.
func (s *activityService) ListActivity(ctx context.Context, email string, limit, offset int) ([]*entity.ActivityLogEntry, error) {
	user, err := findUserByEmail(ctx, s.userRepo, email)
	if err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultActivityLimit
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.activityRepo.FindByUser(ctx, user.ID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list activity")
	}

	return entries, nil
}
