// Package model holds the GORM table definitions of the persistence layer.
package model

// All lists every model managed by AutoMigrate.
func All() []any {
	return []any{
		&UserModel{},
		&RoomModel{},
		&ControllerModel{},
		&DeviceModel{},
		&CommandModel{},
		&AlertModel{},
		&ActivityLogModel{},
		&PushTokenModel{},
	}
}
