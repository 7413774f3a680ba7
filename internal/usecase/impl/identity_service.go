package impl

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"homeswitch/config"
	deliverycontext "homeswitch/internal/delivery/context"
	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// identityService implements the IdentityUsecase interface.
type identityService struct {
	txManager      repository.TransactionManager
	userRepo       repository.UserRepository
	roomRepo       repository.RoomRepository
	controllerRepo repository.ControllerRepository
	deviceRepo     repository.DeviceRepository
	qrCodeService  service.QRCodeService
	clock          service.Clock
	strictRooms    bool
	logger         *slog.Logger
}

// IdentityServiceParams holds dependencies for IdentityService, injected by Fx.
type IdentityServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	UserRepo       repository.UserRepository
	RoomRepo       repository.RoomRepository
	ControllerRepo repository.ControllerRepository
	DeviceRepo     repository.DeviceRepository
	QRCodeService  service.QRCodeService
	Clock          service.Clock
	Config         *config.Config
	Logger         *slog.Logger
}

// NewIdentityService is the constructor for identityService.
func NewIdentityService(params IdentityServiceParams) usecase.IdentityUsecase {
	strictRooms := false
	if params.Config != nil {
		strictRooms = params.Config.Pairing.StrictRoomOwnership
	}

	return &identityService{
		txManager:      params.TxManager,
		userRepo:       params.UserRepo,
		roomRepo:       params.RoomRepo,
		controllerRepo: params.ControllerRepo,
		deviceRepo:     params.DeviceRepo,
		qrCodeService:  params.QRCodeService,
		clock:          params.Clock,
		strictRooms:    strictRooms,
		logger:         params.Logger,
	}
}

func (srv *identityService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// RegisterController creates or refreshes a controller and one device per declared channel.
func (srv *identityService) RegisterController(ctx context.Context, input *usecase.RegisterControllerInput) (*usecase.RegisterControllerOutput, error) {
	controllerID := strings.TrimSpace(input.ControllerID)
	if controllerID == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("controller_id is required")
	}
	channels := normalizeChannels(input.Channels)
	now := srv.clock.Now()

	output := &usecase.RegisterControllerOutput{}
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		controllerRepo := repoFactory.NewControllerRepository()
		deviceRepo := repoFactory.NewDeviceRepository()

		controller, err := controllerRepo.FindByControllerID(ctx, controllerID)
		switch {
		case errors.Is(err, repository.ErrControllerNotFound):
			controller = &entity.Controller{
				ID:           uuid.New(),
				ControllerID: controllerID,
				Name:         entity.DefaultControllerName(controllerID),
				Status:       entity.ControllerOffline,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := controllerRepo.CreateController(ctx, controller); err != nil {
				return errors.Wrap(err, "failed to create controller")
			}
			srv.log(ctx).Info("Controller registered", slog.String("controller_id", controllerID))
		case err != nil:
			return errors.Wrap(err, "failed to find controller")
		}

		for _, channel := range channels {
			created, err := srv.reconcileChannel(ctx, deviceRepo, controller, channel)
			if err != nil {
				return err
			}
			if created {
				output.DevicesCreated++
			}
		}

		// Device rows before the controller row, the same order pairing uses.
		if name := strings.TrimSpace(input.Name); name != "" && name != controller.Name {
			controller.Name = name
			if err := controllerRepo.UpdateController(ctx, controller); err != nil {
				return errors.Wrap(err, "failed to rename controller")
			}
		}
		if err := controllerRepo.Touch(ctx, controller.ID, now); err != nil {
			return errors.Wrap(err, "failed to mark controller online")
		}
		controller.MarkSeen(now)

		output.Controller = controller

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Controller channels reconciled",
		slog.String("controller_id", controllerID),
		slog.Int("channels", len(channels)),
		slog.Int("devices_created", output.DevicesCreated))

	return output, nil
}

// reconcileChannel creates the device for a channel or refreshes an existing one.
// Paired devices keep their name, type and hardware pin.
func (srv *identityService) reconcileChannel(ctx context.Context, deviceRepo repository.DeviceRepository, controller *entity.Controller, channel string) (bool, error) {
	now := srv.clock.Now()

	device, err := deviceRepo.FindByControllerAndPin(ctx, controller.ID, channel)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		device, err = deviceRepo.FindByDeviceID(ctx, entity.ChannelDeviceID(controller.ControllerID, channel))
	}

	if errors.Is(err, repository.ErrDeviceNotFound) {
		code, err := newPairingCode(ctx, deviceRepo)
		if err != nil {
			return false, err
		}

		controllerID := controller.ID
		device = &entity.Device{
			ID:           uuid.New(),
			DeviceID:     entity.ChannelDeviceID(controller.ControllerID, channel),
			HardwarePin:  channel,
			Name:         entity.DefaultDeviceName(channel),
			Type:         entity.DefaultDeviceType(channel),
			ControllerID: &controllerID,
			PairingCode:  code,
			Status:       entity.DeviceOff,
			LastSeen:     &now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := deviceRepo.CreateDevice(ctx, device); err != nil {
			return false, errors.Wrapf(err, "failed to create device for channel %s", channel)
		}

		return true, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to find device for channel")
	}

	controllerID := controller.ID
	device.ControllerID = &controllerID
	device.LastSeen = &now
	if !device.IsPaired {
		device.HardwarePin = channel
		device.Name = entity.DefaultDeviceName(channel)
		device.Type = entity.DefaultDeviceType(channel)
	}

	if err := deviceRepo.UpdateDevice(ctx, device); err != nil {
		return false, errors.Wrapf(err, "failed to refresh device for channel %s", channel)
	}

	return false, nil
}

// ReconcilePairing binds an unpaired device to the user when the pairing code matches.
func (srv *identityService) ReconcilePairing(ctx context.Context, input *usecase.PairDeviceInput) (*entity.Device, error) {
	deviceID := strings.TrimSpace(input.DeviceID)
	code := strings.TrimSpace(input.PairingCode)
	if deviceID == "" || code == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("device_id and pairing_code are required")
	}

	var deviceType entity.DeviceType
	if input.DeviceType != "" {
		deviceType = entity.DeviceType(strings.ToLower(strings.TrimSpace(input.DeviceType)))
		if !deviceType.IsValid() {
			return nil, domainerrors.ErrValidationFailed.WrapMessage("unknown device type")
		}
	}

	now := srv.clock.Now()

	var paired *entity.Device
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		deviceRepo := repoFactory.NewDeviceRepository()

		user, err := findUserByEmail(ctx, repoFactory.NewUserRepository(), input.Email)
		if err != nil {
			return err
		}

		device, err := deviceRepo.LockByDeviceID(ctx, deviceID)
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return domainerrors.ErrInvalidPairingCode
		}
		if err != nil {
			return errors.Wrap(err, "failed to lock device")
		}
		if device.PairingCode != code {
			return domainerrors.ErrInvalidPairingCode
		}
		if device.IsPaired && !device.IsOwnedBy(user.ID) {
			return domainerrors.ErrDeviceAlreadyPaired
		}

		roomID, err := srv.resolveRoom(ctx, repoFactory.NewRoomRepository(), user, input.RoomID)
		if err != nil {
			return err
		}

		ownerID := user.ID
		device.IsPaired = true
		device.OwnerID = &ownerID
		device.LastSeen = &now
		if roomID != nil {
			device.RoomID = roomID
		}
		if name := strings.TrimSpace(input.DisplayName); name != "" {
			device.Name = name
		}
		if deviceType != "" {
			device.Type = deviceType
		}
		if endpoint := strings.TrimSpace(input.EndpointURL); endpoint != "" {
			device.EndpointURL = endpoint
		}

		if err := deviceRepo.UpdateDevice(ctx, device); err != nil {
			return errors.Wrap(err, "failed to pair device")
		}

		entry := newActivityEntry(device, entity.LogInfo, entity.ActionPairing, entity.SourceUser, "Device "+device.Name+" paired", now)
		entry.Details = map[string]any{"device_id": device.DeviceID, "hardware_pin": device.HardwarePin}
		if err := repoFactory.NewActivityLogRepository().CreateEntry(ctx, entry); err != nil {
			return errors.Wrap(err, "failed to record pairing")
		}

		if device.ControllerID != nil {
			assigned, err := repoFactory.NewControllerRepository().AssignOwnerIfUnowned(ctx, *device.ControllerID, user.ID, device.RoomID)
			if err != nil {
				return errors.Wrap(err, "failed to backfill controller owner")
			}
			if assigned {
				srv.log(ctx).Info("Controller owner backfilled from pairing",
					slog.String("controller_id", device.ControllerID.String()),
					slog.String("user_id", user.ID.String()))
			}
		}

		paired = device

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Device paired",
		slog.String("device_id", paired.DeviceID),
		slog.String("hardware_pin", paired.HardwarePin))

	return paired, nil
}

// resolveRoom returns the room id to assign, or nil when the room belongs to
// someone else and strict ownership is off.
func (srv *identityService) resolveRoom(ctx context.Context, roomRepo repository.RoomRepository, user *entity.User, roomID *uuid.UUID) (*uuid.UUID, error) {
	if roomID == nil {
		return nil, nil
	}

	room, err := roomRepo.FindRoomByID(ctx, *roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		if srv.strictRooms {
			return nil, domainerrors.ErrRoomNotFound
		}

		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find room")
	}

	if room.OwnerID != user.ID {
		if srv.strictRooms {
			return nil, domainerrors.ErrRoomOwnership
		}
		srv.log(ctx).Warn("Ignoring room owned by another user",
			slog.String("room_id", room.ID.String()),
			slog.String("user_id", user.ID.String()))

		return nil, nil
	}

	id := room.ID

	return &id, nil
}

// PairFromQR pairs using the device id and code encoded in a pairing QR code.
func (srv *identityService) PairFromQR(ctx context.Context, input *usecase.PairFromQRInput) (*entity.Device, error) {
	deviceID, code, err := srv.qrCodeService.ParsePairingQR(input.QRData)
	if err != nil {
		return nil, domainerrors.ErrInvalidQRCode.WithDetails(err.Error())
	}

	return srv.ReconcilePairing(ctx, &usecase.PairDeviceInput{
		Email:       input.Email,
		DeviceID:    deviceID,
		PairingCode: code,
		RoomID:      input.RoomID,
		DisplayName: input.DisplayName,
		EndpointURL: input.EndpointURL,
		DeviceType:  input.DeviceType,
	})
}

// UnpairDevice releases a device and issues a fresh pairing code.
func (srv *identityService) UnpairDevice(ctx context.Context, email, deviceID string) error {
	now := srv.clock.Now()

	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		deviceRepo := repoFactory.NewDeviceRepository()

		user, err := findUserByEmail(ctx, repoFactory.NewUserRepository(), email)
		if err != nil {
			return err
		}

		device, err := deviceRepo.LockByDeviceID(ctx, deviceID)
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return domainerrors.ErrDeviceNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to lock device")
		}
		if !device.IsOwnedBy(user.ID) {
			return domainerrors.ErrDeviceNotFound
		}

		code, err := newPairingCode(ctx, deviceRepo)
		if err != nil {
			return err
		}

		entry := newActivityEntry(device, entity.LogInfo, entity.ActionPairing, entity.SourceUser, "Device "+device.Name+" unpaired", now)

		device.IsPaired = false
		device.OwnerID = nil
		device.RoomID = nil
		device.Status = entity.DeviceOff
		device.PairingCode = code

		if err := deviceRepo.UpdateDevice(ctx, device); err != nil {
			return errors.Wrap(err, "failed to unpair device")
		}

		if err := repoFactory.NewActivityLogRepository().CreateEntry(ctx, entry); err != nil {
			return errors.Wrap(err, "failed to record unpairing")
		}

		srv.log(ctx).Info("Device unpaired", slog.String("device_id", device.DeviceID))

		return nil
	})
}

// StartOnboarding returns the account for email, creating it on first use.
func (srv *identityService) StartOnboarding(ctx context.Context, email, fullName string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("email is required")
	}

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to find user by email")
	}

	now := srv.clock.Now()
	user = &entity.User{
		ID:        uuid.New(),
		Email:     email,
		FullName:  strings.TrimSpace(fullName),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = srv.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateUser) {
		// Lost a race with a concurrent onboarding of the same email.
		return srv.userRepo.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	srv.log(ctx).Info("User onboarded", slog.String("user_id", user.ID.String()))

	return user, nil
}

// UpdateProfile applies the provided fields. Changing the phone number drops its verification.
func (srv *identityService) UpdateProfile(ctx context.Context, input *usecase.UpdateProfileInput) (*entity.User, error) {
	user, err := findUserByEmail(ctx, srv.userRepo, input.Email)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.PhoneNumber != nil {
		phone := strings.TrimSpace(*input.PhoneNumber)
		if phone != user.PhoneNumber {
			user.PhoneNumber = phone
			user.PhoneVerified = false
		}
	}

	if err := srv.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to update profile")
	}

	return user, nil
}

// VerifyPhone stores the number and queues a test alert on the user's controller.
func (srv *identityService) VerifyPhone(ctx context.Context, email, phoneNumber string) (*entity.Command, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("phone_number is required")
	}
	now := srv.clock.Now()

	var command *entity.Command
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()

		user, err := findUserByEmail(ctx, userRepo, email)
		if err != nil {
			return err
		}

		controllers, err := repoFactory.NewControllerRepository().FindByOwner(ctx, user.ID)
		if err != nil {
			return errors.Wrap(err, "failed to find controllers")
		}
		if len(controllers) == 0 {
			return domainerrors.ErrNoControllerForUser
		}

		target := controllers[0]
		for _, controller := range controllers {
			if controller.Status == entity.ControllerOnline {
				target = controller

				break
			}
		}

		user.PhoneNumber = phoneNumber
		user.PhoneVerified = false
		if err := userRepo.Update(ctx, user); err != nil {
			return errors.Wrap(err, "failed to store phone number")
		}

		command = &entity.Command{
			ID:           uuid.New(),
			ControllerID: target.ID,
			Action:       entity.ActionTestAlert,
			Status:       entity.CommandPending,
			CreatedAt:    now,
		}
		if err := repoFactory.NewCommandRepository().CreateCommand(ctx, command); err != nil {
			return errors.Wrap(err, "failed to queue test alert")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Test alert queued",
		slog.String("command_id", command.ID.String()),
		slog.String("controller_id", command.ControllerID.String()))

	return command, nil
}

// CreateRoom adds a room for the user. Names are unique per owner.
func (srv *identityService) CreateRoom(ctx context.Context, email, name, icon string) (*entity.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("room name is required")
	}
	if strings.TrimSpace(icon) == "" {
		icon = entity.DefaultRoomIcon
	}

	user, err := findUserByEmail(ctx, srv.userRepo, email)
	if err != nil {
		return nil, err
	}

	room := &entity.Room{
		ID:        uuid.New(),
		Name:      name,
		Icon:      icon,
		OwnerID:   user.ID,
		CreatedAt: srv.clock.Now(),
	}

	err = srv.roomRepo.CreateRoom(ctx, room)
	if errors.Is(err, repository.ErrDuplicateRoom) {
		return nil, domainerrors.ErrRoomAlreadyExists
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create room")
	}

	return room, nil
}

// ListDevices returns the user's paired devices with their room names.
func (srv *identityService) ListDevices(ctx context.Context, email string) ([]*usecase.DeviceView, error) {
	user, err := findUserByEmail(ctx, srv.userRepo, email)
	if err != nil {
		return nil, err
	}

	devices, err := srv.deviceRepo.FindPairedByOwner(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	rooms, err := srv.roomRepo.FindRoomsByOwner(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list rooms")
	}
	roomNames := make(map[uuid.UUID]string, len(rooms))
	for _, room := range rooms {
		roomNames[room.ID] = room.Name
	}

	views := make([]*usecase.DeviceView, 0, len(devices))
	for _, device := range devices {
		view := &usecase.DeviceView{Device: device}
		if device.RoomID != nil {
			view.RoomName = roomNames[*device.RoomID]
		}
		views = append(views, view)
	}

	return views, nil
}

// PairingQR renders the pairing QR code of an unpaired device.
func (srv *identityService) PairingQR(ctx context.Context, deviceID string) ([]byte, error) {
	device, err := srv.deviceRepo.FindByDeviceID(ctx, deviceID)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return nil, domainerrors.ErrDeviceNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find device")
	}
	if device.IsPaired {
		return nil, domainerrors.ErrDeviceAlreadyPaired
	}

	png, err := srv.qrCodeService.GeneratePairingQR(device.DeviceID, device.PairingCode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render pairing QR code")
	}

	return png, nil
}

// normalizeChannels trims names and drops blanks and repeats, keeping first-seen order.
func normalizeChannels(raw []string) []string {
	channels := make([]string, 0, len(raw))
	for _, channel := range raw {
		channel = strings.TrimSpace(channel)
		if channel == "" || slices.Contains(channels, channel) {
			continue
		}
		channels = append(channels, channel)
	}

	return channels
}
