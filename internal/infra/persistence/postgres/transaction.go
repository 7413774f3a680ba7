// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"homeswitch/internal/domain/repository"

	"gorm.io/gorm"
)

type gormTransactionManager struct {
	db *gorm.DB
}

// gormRepositoryFactory hands out repositories bound to one transaction.
type gormRepositoryFactory struct {
	tx *gorm.DB
}

func (f *gormRepositoryFactory) NewUserRepository() repository.UserRepository {
	return NewUserRepository(f.tx)
}

func (f *gormRepositoryFactory) NewRoomRepository() repository.RoomRepository {
	return NewRoomRepository(f.tx)
}

func (f *gormRepositoryFactory) NewControllerRepository() repository.ControllerRepository {
	return NewControllerRepository(f.tx)
}

func (f *gormRepositoryFactory) NewDeviceRepository() repository.DeviceRepository {
	return NewDeviceRepository(f.tx)
}

func (f *gormRepositoryFactory) NewCommandRepository() repository.CommandRepository {
	return NewCommandRepository(f.tx)
}

func (f *gormRepositoryFactory) NewAlertRepository() repository.AlertRepository {
	return NewAlertRepository(f.tx)
}

func (f *gormRepositoryFactory) NewActivityLogRepository() repository.ActivityLogRepository {
	return NewActivityLogRepository(f.tx)
}

func (f *gormRepositoryFactory) NewPushTokenRepository() repository.PushTokenRepository {
	return NewPushTokenRepository(f.tx)
}

func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

// Execute runs fn in one transaction. Row locks taken by forUpdate inside fn
// are held until it returns, which is what serializes command submission per
// device. Errors from fn are returned unwrapped so callers can match domain errors.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositoryFactory{tx: tx})
	})
}
