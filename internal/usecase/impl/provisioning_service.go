package impl

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"

	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/usecase"
	"homeswitch/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	stockDeviceIDLength = 12
	stockDeviceName     = "New Device"
	maxStockBatch       = 1000
)

// provisioningService implements the ProvisioningUsecase interface.
type provisioningService struct {
	txManager      repository.TransactionManager
	controllerRepo repository.ControllerRepository
	deviceRepo     repository.DeviceRepository
	clock          service.Clock
	logger         *slog.Logger
}

// ProvisioningServiceParams holds dependencies for ProvisioningService, injected by Fx.
type ProvisioningServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	ControllerRepo repository.ControllerRepository
	DeviceRepo     repository.DeviceRepository
	Clock          service.Clock
	Logger         *slog.Logger
}

// NewProvisioningService is the constructor for provisioningService.
func NewProvisioningService(params ProvisioningServiceParams) usecase.ProvisioningUsecase {
	return &provisioningService{
		txManager:      params.TxManager,
		controllerRepo: params.ControllerRepo,
		deviceRepo:     params.DeviceRepo,
		clock:          params.Clock,
		logger:         params.Logger,
	}
}

var stockDeviceTypes = []entity.DeviceType{entity.DeviceTypeSocket, entity.DeviceTypeLight, entity.DeviceTypeFan}

// GenerateStock creates unpaired devices that are not yet attached to a controller.
func (srv *provisioningService) GenerateStock(ctx context.Context, count int) ([]*entity.Device, error) {
	if count <= 0 || count > maxStockBatch {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("count must be between 1 and 1000")
	}

	now := srv.clock.Now()
	created := make([]*entity.Device, 0, count)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		created = created[:0]
		deviceRepo := repoFactory.NewDeviceRepository()

		for range count {
			deviceID, err := util.RandomUpperAlnum(stockDeviceIDLength)
			if err != nil {
				return errors.Wrap(err, "failed to generate device id")
			}

			if _, err := deviceRepo.FindByDeviceID(ctx, deviceID); err == nil {
				continue
			} else if !errors.Is(err, repository.ErrDeviceNotFound) {
				return errors.Wrap(err, "failed to check device id")
			}

			code, err := newPairingCode(ctx, deviceRepo)
			if err != nil {
				return err
			}

			device := &entity.Device{
				ID:          uuid.New(),
				DeviceID:    deviceID,
				Name:        stockDeviceName,
				Type:        stockDeviceTypes[rand.IntN(len(stockDeviceTypes))], //nolint:gosec
				PairingCode: code,
				Status:      entity.DeviceOff,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := deviceRepo.CreateDevice(ctx, device); err != nil {
				return errors.Wrap(err, "failed to create stock device")
			}
			created = append(created, device)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.logger.Info("Stock devices generated", slog.Int("count", len(created)))

	return created, nil
}

// CheckPins audits every device against its controller's channels.
func (srv *provisioningService) CheckPins(ctx context.Context, dryRun bool) (*usecase.PinReport, error) {
	controllers, err := srv.controllerRepo.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list controllers")
	}
	controllerIDs := make(map[uuid.UUID]string, len(controllers))
	for _, controller := range controllers {
		controllerIDs[controller.ID] = controller.ControllerID
	}

	devices, err := srv.deviceRepo.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	report := &usecase.PinReport{}
	pins := make(map[uuid.UUID]map[string][]string)

	for _, device := range devices {
		if !device.IsPaired {
			report.Unpaired++
		}

		if device.ControllerID == nil {
			if device.IsPaired {
				report.PairedWithoutController = append(report.PairedWithoutController, device)
			}

			continue
		}

		if device.IsPaired {
			report.Ready++
		}

		if device.HardwarePin == "" {
			report.MissingPin = append(report.MissingPin, device)

			continue
		}

		if pins[*device.ControllerID] == nil {
			pins[*device.ControllerID] = make(map[string][]string)
		}
		pins[*device.ControllerID][device.HardwarePin] = append(pins[*device.ControllerID][device.HardwarePin], device.DeviceID)
	}

	for controllerID, byPin := range pins {
		for pin, deviceIDs := range byPin {
			if len(deviceIDs) > 1 {
				report.Conflicts = append(report.Conflicts, usecase.PinConflict{
					ControllerID: controllerIDs[controllerID],
					HardwarePin:  pin,
					DeviceIDs:    deviceIDs,
				})
			}
		}
	}

	for _, device := range report.MissingPin {
		pin, ok := pinFromDeviceID(controllerIDs[*device.ControllerID], device.DeviceID)
		if !ok {
			continue
		}
		if _, taken := pins[*device.ControllerID][pin]; taken {
			continue
		}

		if pins[*device.ControllerID] == nil {
			pins[*device.ControllerID] = make(map[string][]string)
		}
		pins[*device.ControllerID][pin] = []string{device.DeviceID}

		report.Fixed++
		if dryRun {
			continue
		}

		device.HardwarePin = pin
		if err := srv.deviceRepo.UpdateDevice(ctx, device); err != nil {
			return nil, errors.Wrapf(err, "failed to set hardware pin of %s", device.DeviceID)
		}
	}

	return report, nil
}

// pinFromDeviceID recovers the channel of a "<controller>-<channel>" device id.
func pinFromDeviceID(controllerID, deviceID string) (string, bool) {
	if controllerID == "" {
		return "", false
	}

	pin, ok := strings.CutPrefix(deviceID, controllerID+"-")
	if !ok || pin == "" {
		return "", false
	}

	return pin, true
}
