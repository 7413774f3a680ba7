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

// deviceRepository implements the repository.DeviceRepository interface.
type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository is the constructor for deviceRepository.
func NewDeviceRepository(db *gorm.DB) repository.DeviceRepository {
	return &deviceRepository{
		db: db,
	}
}

// CreateDevice persists a new device.
func (repo *deviceRepository) CreateDevice(ctx context.Context, device *entity.Device) error {
	deviceM := fromDeviceDomain(device)

	if err := repo.db.WithContext(ctx).Create(deviceM).Error; err != nil {
		// Convert driver errors to domain errors
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateDevice
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required device information")
		}
		// For other database errors, return a generic database error
		return domainerrors.NewDatabaseExecuteError(err, "failed to create device")
	}

	// Update the entity with generated values
	device.CreatedAt = deviceM.CreatedAt
	device.UpdatedAt = deviceM.UpdatedAt

	return nil
}

// FindByID retrieves a device by its primary key.
func (repo *deviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Device, error) {
	return repo.first(repo.db.WithContext(ctx).Where("id = ?", id))
}

// FindByDeviceID retrieves a device by its client-facing identifier.
func (repo *deviceRepository) FindByDeviceID(ctx context.Context, deviceID string) (*entity.Device, error) {
	return repo.first(repo.db.WithContext(ctx).Where("device_id = ?", deviceID))
}

// LockByID reads the device row FOR UPDATE.
func (repo *deviceRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Device, error) {
	return repo.first(forUpdate(repo.db.WithContext(ctx)).Where("id = ?", id))
}

// LockByDeviceID reads the device row FOR UPDATE by client-facing identifier.
func (repo *deviceRepository) LockByDeviceID(ctx context.Context, deviceID string) (*entity.Device, error) {
	return repo.first(forUpdate(repo.db.WithContext(ctx)).Where("device_id = ?", deviceID))
}

// FindByControllerAndPin resolves a controller channel to its device.
func (repo *deviceRepository) FindByControllerAndPin(ctx context.Context, controllerID uuid.UUID, hardwarePin string) (*entity.Device, error) {
	return repo.first(repo.db.WithContext(ctx).
		Where("controller_id = ? AND hardware_pin = ?", controllerID, hardwarePin))
}

// FindByController lists the devices wired to a controller.
func (repo *deviceRepository) FindByController(ctx context.Context, controllerID uuid.UUID) ([]*entity.Device, error) {
	return repo.find(repo.db.WithContext(ctx).
		Where("controller_id = ?", controllerID).
		Order("hardware_pin ASC"))
}

// FindPairedByOwner returns the user's paired devices ordered by name.
func (repo *deviceRepository) FindPairedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entity.Device, error) {
	return repo.find(repo.db.WithContext(ctx).
		Where("owner_id = ? AND is_paired = ?", ownerID, true).
		Order("name ASC"))
}

// ListAll returns every device ordered by device id.
func (repo *deviceRepository) ListAll(ctx context.Context) ([]*entity.Device, error) {
	return repo.find(repo.db.WithContext(ctx).Order("device_id ASC"))
}

// UpdateDevice saves every mutable column of the device.
func (repo *deviceRepository) UpdateDevice(ctx context.Context, device *entity.Device) error {
	result := repo.db.WithContext(ctx).
		Model(&model.DeviceModel{}).
		Where("id = ?", device.ID).
		Updates(map[string]any{
			"hardware_pin":  device.HardwarePin,
			"name":          device.Name,
			"type":          string(device.Type),
			"controller_id": device.ControllerID,
			"owner_id":      device.OwnerID,
			"room_id":       device.RoomID,
			"is_paired":     device.IsPaired,
			"pairing_code":  device.PairingCode,
			"endpoint_url":  device.EndpointURL,
			"status":        string(device.Status),
			"current_value": device.CurrentValue,
			"last_seen":     device.LastSeen,
		})
	if result.Error != nil {
		if isUniqueConstraintViolation(result.Error) {
			return repository.ErrDuplicateDevice
		}

		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update device")
	}

	if result.RowsAffected == 0 {
		return repository.ErrDeviceNotFound
	}

	return nil
}

// PairingCodeExists reports whether any device already uses code.
func (repo *deviceRepository) PairingCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64

	if err := onPrimary(repo.db.WithContext(ctx)).
		Model(&model.DeviceModel{}).
		Where("pairing_code = ?", code).
		Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "failed to check pairing code")
	}

	return count > 0, nil
}

func (repo *deviceRepository) first(query *gorm.DB) (*entity.Device, error) {
	var deviceM model.DeviceModel

	if err := query.First(&deviceM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrDeviceNotFound
		}

		return nil, errors.Wrap(err, "failed to find device")
	}

	return toDeviceDomain(&deviceM), nil
}

func (repo *deviceRepository) find(query *gorm.DB) ([]*entity.Device, error) {
	var deviceModels []*model.DeviceModel

	if err := query.Find(&deviceModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find devices")
	}

	devices := make([]*entity.Device, 0, len(deviceModels))
	for _, deviceM := range deviceModels {
		devices = append(devices, toDeviceDomain(deviceM))
	}

	return devices, nil
}

// --- Mapper Functions ---

// toDeviceDomain converts a GORM DeviceModel to a domain Device entity.
func toDeviceDomain(data *model.DeviceModel) *entity.Device {
	if data == nil {
		return nil
	}

	return &entity.Device{
		ID:           data.ID,
		DeviceID:     data.DeviceID,
		HardwarePin:  data.HardwarePin,
		Name:         data.Name,
		Type:         entity.DeviceType(data.Type),
		ControllerID: data.ControllerID,
		OwnerID:      data.OwnerID,
		RoomID:       data.RoomID,
		IsPaired:     data.IsPaired,
		PairingCode:  data.PairingCode,
		EndpointURL:  data.EndpointURL,
		Status:       entity.DeviceStatus(data.Status),
		CurrentValue: data.CurrentValue,
		LastSeen:     data.LastSeen,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

// fromDeviceDomain converts a domain Device entity to a GORM DeviceModel.
func fromDeviceDomain(data *entity.Device) *model.DeviceModel {
	if data == nil {
		return nil
	}

	return &model.DeviceModel{
		ID:           data.ID,
		DeviceID:     data.DeviceID,
		HardwarePin:  data.HardwarePin,
		Name:         data.Name,
		Type:         string(data.Type),
		ControllerID: data.ControllerID,
		OwnerID:      data.OwnerID,
		RoomID:       data.RoomID,
		IsPaired:     data.IsPaired,
		PairingCode:  data.PairingCode,
		EndpointURL:  data.EndpointURL,
		Status:       string(data.Status),
		CurrentValue: data.CurrentValue,
		LastSeen:     data.LastSeen,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
