package repository

import "context"

// TransactionManager runs use case work atomically. Repositories obtained from
// the factory share the transaction and lose their meaning once fn returns.
type TransactionManager interface {
	// Execute commits when fn returns nil and rolls back otherwise.
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory builds repositories bound to the current transaction.
type RepositoryFactory interface {
	NewUserRepository() UserRepository
	NewRoomRepository() RoomRepository
	NewControllerRepository() ControllerRepository
	NewDeviceRepository() DeviceRepository
	NewCommandRepository() CommandRepository
	NewAlertRepository() AlertRepository
	NewActivityLogRepository() ActivityLogRepository
	NewPushTokenRepository() PushTokenRepository
}
