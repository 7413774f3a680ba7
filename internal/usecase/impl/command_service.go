package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"homeswitch/config"
	deliverycontext "homeswitch/internal/delivery/context"
	"homeswitch/internal/domain/constants"
	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/infra/metrics"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const commandFailedMessage = "controller reported failure"

// commandService implements the CommandUsecase interface.
type commandService struct {
	txManager      repository.TransactionManager
	userRepo       repository.UserRepository
	controllerRepo repository.ControllerRepository
	deviceRepo     repository.DeviceRepository
	commandRepo    repository.CommandRepository
	reaper         usecase.ReaperUsecase
	fanout         usecase.FanoutUsecase
	clock          service.Clock
	timeout        time.Duration
	dedupWindow    time.Duration
	batchSize      int
	logger         *slog.Logger
}

// CommandServiceParams holds dependencies for CommandService, injected by Fx.
type CommandServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	UserRepo       repository.UserRepository
	ControllerRepo repository.ControllerRepository
	DeviceRepo     repository.DeviceRepository
	CommandRepo    repository.CommandRepository
	Reaper         usecase.ReaperUsecase
	Fanout         usecase.FanoutUsecase
	Clock          service.Clock
	Config         *config.Config
	Logger         *slog.Logger
}

// NewCommandService is the constructor for commandService.
func NewCommandService(params CommandServiceParams) usecase.CommandUsecase {
	srv := &commandService{
		txManager:      params.TxManager,
		userRepo:       params.UserRepo,
		controllerRepo: params.ControllerRepo,
		deviceRepo:     params.DeviceRepo,
		commandRepo:    params.CommandRepo,
		reaper:         params.Reaper,
		fanout:         params.Fanout,
		clock:          params.Clock,
		timeout:        constants.DefaultCommandTimeout,
		dedupWindow:    constants.DefaultSuccessDedupWindow,
		batchSize:      constants.DefaultPollBatchSize,
		logger:         params.Logger,
	}

	if params.Config != nil {
		queue := params.Config.CommandQueue
		if queue.CommandTimeout > 0 {
			srv.timeout = queue.CommandTimeout
		}
		if queue.SuccessDedupWindow > 0 {
			srv.dedupWindow = queue.SuccessDedupWindow
		}
		if queue.PollBatchSize > 0 {
			srv.batchSize = queue.PollBatchSize
		}
	}

	return srv
}

func (srv *commandService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Submit queues an action for a device, holding the device row lock while
// the outstanding command is checked.
func (srv *commandService) Submit(ctx context.Context, deviceID, action string) (*entity.Command, error) {
	deviceID = strings.TrimSpace(deviceID)
	action = strings.TrimSpace(action)
	if deviceID == "" || action == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("device_id and action are required")
	}

	now := srv.clock.Now()
	ob := &outbox{}

	var command *entity.Command
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		ob.reset()

		var err error
		command, err = srv.submitTx(ctx, repoFactory, deviceID, action, now, ob)

		return err
	})
	if err != nil {
		var conflict *domainerrors.CommandConflictError
		if errors.As(err, &conflict) {
			metrics.CommandsTotal.WithLabelValues(metrics.CommandConflict).Inc()
			srv.log(ctx).Info("Command rejected, slot busy",
				slog.String("device_id", deviceID),
				slog.String("blocking_command_id", conflict.CommandID),
				slog.Int("time_remaining", conflict.TimeRemaining))
		}

		return nil, err
	}

	metrics.CommandsTotal.WithLabelValues(metrics.CommandSubmitted).Inc()
	srv.log(ctx).Info("Command queued",
		slog.String("command_id", command.ID.String()),
		slog.String("device_id", deviceID),
		slog.String("action", action))

	ob.flush(ctx, srv.fanout, nil, srv.log(ctx))

	return command, nil
}

func (srv *commandService) submitTx(ctx context.Context, repoFactory repository.RepositoryFactory, deviceID, action string, now time.Time, ob *outbox) (*entity.Command, error) {
	deviceRepo := repoFactory.NewDeviceRepository()
	commandRepo := repoFactory.NewCommandRepository()

	device, err := deviceRepo.LockByDeviceID(ctx, deviceID)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return nil, domainerrors.ErrDeviceNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock device")
	}
	if !device.CanReceiveCommands() {
		return nil, domainerrors.ErrDeviceNotConnected
	}

	outstanding, err := commandRepo.FindOutstandingForDevice(ctx, device.ID)
	switch {
	case errors.Is(err, repository.ErrCommandNotFound):
	case err != nil:
		return nil, errors.Wrap(err, "failed to find outstanding command")
	case !outstanding.IsStale(now, srv.timeout):
		return nil, domainerrors.NewCommandConflictError(
			outstanding.ID.String(),
			string(outstanding.Status),
			outstanding.TimeRemaining(now, srv.timeout),
		)
	default:
		if err := srv.expireTx(ctx, repoFactory, device, outstanding, now, ob); err != nil {
			return nil, err
		}
	}

	command := &entity.Command{
		ID:           uuid.New(),
		DeviceID:     &device.ID,
		ControllerID: *device.ControllerID,
		Action:       action,
		Status:       entity.CommandPending,
		CreatedAt:    now,
	}
	if err := commandRepo.CreateCommand(ctx, command); err != nil {
		return nil, errors.Wrap(err, "failed to create command")
	}

	if status, ok := command.TargetStatus(); ok {
		device.Status = status
		if err := deviceRepo.UpdateDevice(ctx, device); err != nil {
			return nil, errors.Wrap(err, "failed to reflect target status")
		}
	}

	ob.publish(device.OwnerID, usecase.EventDeviceStatus, deviceStatusData(device))
	ob.publish(device.OwnerID, usecase.EventCommandUpdate, commandUpdateData(command, device.DeviceID, now, srv.timeout))

	return command, nil
}

// expireTx force-fails a stale command found blocking a submission.
func (srv *commandService) expireTx(ctx context.Context, repoFactory repository.RepositoryFactory, device *entity.Device, stale *entity.Command, now time.Time, ob *outbox) error {
	stale.Finish(false, entity.CommandTimeoutError, now)
	if err := repoFactory.NewCommandRepository().UpdateCommand(ctx, stale); err != nil {
		return errors.Wrap(err, "failed to expire stale command")
	}

	entry := newActivityEntry(device, entity.LogWarning, entity.ActionDeviceControl, entity.SourceSystem,
		fmt.Sprintf("Command %s on %s timed out", stale.Action, device.Name), now)
	entry.Details = map[string]any{"command_id": stale.ID.String()}
	if err := repoFactory.NewActivityLogRepository().CreateEntry(ctx, entry); err != nil {
		return errors.Wrap(err, "failed to record command timeout")
	}

	metrics.CommandsTotal.WithLabelValues(metrics.CommandReaped).Inc()
	ob.publish(device.OwnerID, usecase.EventCommandUpdate, commandUpdateData(stale, device.DeviceID, now, srv.timeout))

	return nil
}

// Poll marks the controller alive, reaps its stale commands and claims the
// oldest outstanding ones.
func (srv *commandService) Poll(ctx context.Context, controllerID string) ([]*entity.IssuedCommand, error) {
	controller, err := srv.controllerRepo.FindByControllerID(ctx, controllerID)
	if errors.Is(err, repository.ErrControllerNotFound) {
		return nil, domainerrors.ErrControllerNotRegistered
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find controller")
	}

	now := srv.clock.Now()
	if err := srv.controllerRepo.Touch(ctx, controller.ID, now); err != nil {
		return nil, errors.Wrap(err, "failed to mark controller online")
	}

	if _, err := srv.reaper.ReapController(ctx, controllerID); err != nil {
		return nil, err
	}

	var issued []*entity.IssuedCommand
	claimed := 0
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		commandRepo := repoFactory.NewCommandRepository()
		deviceRepo := repoFactory.NewDeviceRepository()

		commands, err := commandRepo.LockOutstandingForController(ctx, controller.ID, srv.batchSize)
		if err != nil {
			return errors.Wrap(err, "failed to lock outstanding commands")
		}

		pending := make([]uuid.UUID, 0, len(commands))
		for _, command := range commands {
			if command.Status == entity.CommandPending {
				pending = append(pending, command.ID)
			}
		}
		if err := commandRepo.MarkExecuting(ctx, pending); err != nil {
			return errors.Wrap(err, "failed to mark commands executing")
		}
		claimed = len(pending)

		issued = make([]*entity.IssuedCommand, 0, len(commands))
		for _, command := range commands {
			channel, err := srv.channelOf(ctx, deviceRepo, command)
			if err != nil {
				return err
			}
			issued = append(issued, &entity.IssuedCommand{
				CommandID: command.ID,
				Channel:   channel,
				Action:    command.Action,
				CreatedAt: command.CreatedAt,
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if claimed > 0 {
		metrics.CommandsTotal.WithLabelValues(metrics.CommandIssued).Add(float64(claimed))
		srv.log(ctx).Info("Commands issued",
			slog.String("controller_id", controllerID),
			slog.Int("count", len(issued)),
			slog.Int("claimed", claimed))
	}

	return issued, nil
}

// channelOf returns the hardware channel of the command's device, or "" for
// system commands.
func (srv *commandService) channelOf(ctx context.Context, deviceRepo repository.DeviceRepository, command *entity.Command) (string, error) {
	if command.DeviceID == nil {
		return "", nil
	}

	device, err := deviceRepo.FindByID(ctx, *command.DeviceID)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to find command device")
	}

	return device.HardwarePin, nil
}

// ReportOutcome finalizes a command reported by the controller.
func (srv *commandService) ReportOutcome(ctx context.Context, commandID uuid.UUID, success bool, errMsg string) (*entity.Command, error) {
	command, err := srv.commandRepo.FindByID(ctx, commandID)
	if errors.Is(err, repository.ErrCommandNotFound) {
		return nil, domainerrors.ErrCommandNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find command")
	}
	if command.Status.IsTerminal() {
		return command, nil
	}

	errMsg = strings.TrimSpace(errMsg)
	if !success && errMsg == "" {
		errMsg = commandFailedMessage
	}

	now := srv.clock.Now()
	ob := &outbox{}

	var result *entity.Command
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		ob.reset()

		var err error
		result, err = srv.reportTx(ctx, repoFactory, command.DeviceID, commandID, success, errMsg, now, ob)

		return err
	})
	if err != nil {
		return nil, err
	}

	if result.Status == entity.CommandCompleted {
		metrics.CommandsTotal.WithLabelValues(metrics.CommandCompleted).Inc()
	} else {
		metrics.CommandsTotal.WithLabelValues(metrics.CommandFailed).Inc()
	}
	srv.log(ctx).Info("Command finalized",
		slog.String("command_id", commandID.String()),
		slog.String("status", string(result.Status)))

	ob.flush(ctx, srv.fanout, nil, srv.log(ctx))

	return result, nil
}

func (srv *commandService) reportTx(ctx context.Context, repoFactory repository.RepositoryFactory, deviceID *uuid.UUID, commandID uuid.UUID, success bool, errMsg string, now time.Time, ob *outbox) (*entity.Command, error) {
	deviceRepo := repoFactory.NewDeviceRepository()
	commandRepo := repoFactory.NewCommandRepository()

	// Device row first, then the command row.
	var device *entity.Device
	if deviceID != nil {
		locked, err := deviceRepo.LockByID(ctx, *deviceID)
		if err != nil && !errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, errors.Wrap(err, "failed to lock device")
		}
		device = locked
	}

	command, err := commandRepo.LockByID(ctx, commandID)
	if errors.Is(err, repository.ErrCommandNotFound) {
		return nil, domainerrors.ErrCommandNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock command")
	}
	if command.Status.IsTerminal() {
		// Finalized concurrently by another report or the reaper.
		return command, nil
	}

	command.Finish(success, errMsg, now)
	if err := commandRepo.UpdateCommand(ctx, command); err != nil {
		return nil, errors.Wrap(err, "failed to finalize command")
	}

	if device != nil {
		if err := srv.applyDeviceOutcome(ctx, repoFactory, device, command, now, ob); err != nil {
			return nil, err
		}
	}

	if command.DeviceID == nil {
		if err := srv.applySystemOutcome(ctx, repoFactory, command, now, ob); err != nil {
			return nil, err
		}
	}

	return command, nil
}

// applyDeviceOutcome updates the device after its command finished and
// queues the notifications for its owner.
func (srv *commandService) applyDeviceOutcome(ctx context.Context, repoFactory repository.RepositoryFactory, device *entity.Device, command *entity.Command, now time.Time, ob *outbox) error {
	var entry *entity.ActivityLogEntry

	if command.Status == entity.CommandCompleted {
		if status, ok := command.TargetStatus(); ok {
			device.Status = status
		}
		device.LastSeen = &now
		if err := repoFactory.NewDeviceRepository().UpdateDevice(ctx, device); err != nil {
			return errors.Wrap(err, "failed to apply command outcome to device")
		}

		entry = newActivityEntry(device, entity.LogInfo, entity.ActionDeviceControl, entity.SourceController,
			fmt.Sprintf("%s: %s completed", device.Name, command.Action), now)
	} else {
		entry = newActivityEntry(device, entity.LogWarning, entity.ActionDeviceControl, entity.SourceController,
			fmt.Sprintf("%s: %s failed: %s", device.Name, command.Action, command.Error), now)
	}

	entry.Details = map[string]any{"command_id": command.ID.String(), "action": command.Action}
	if err := repoFactory.NewActivityLogRepository().CreateEntry(ctx, entry); err != nil {
		return errors.Wrap(err, "failed to record command outcome")
	}

	ob.publish(device.OwnerID, usecase.EventDeviceStatus, deviceStatusData(device))
	ob.publish(device.OwnerID, usecase.EventCommandUpdate, commandUpdateData(command, device.DeviceID, now, srv.timeout))

	if command.Status != entity.CommandCompleted {
		ob.publish(device.OwnerID, usecase.EventAlertNotification, &usecase.AlertNotificationData{
			AlertType: usecase.ToastCommandFailed,
			Title:     "Command failed",
			Message:   fmt.Sprintf("%s could not %s: %s", device.Name, command.Action, command.Error),
			DeviceID:  device.DeviceID,
		})

		return nil
	}

	duplicate, err := repoFactory.NewCommandRepository().HasRecentSuccess(ctx, device.ID, command.Action, now.Add(-srv.dedupWindow), command.ID)
	if err != nil {
		return errors.Wrap(err, "failed to check recent success")
	}
	if duplicate {
		srv.log(ctx).Debug("Suppressing duplicate success toast",
			slog.String("device_id", device.DeviceID),
			slog.String("action", command.Action))

		return nil
	}

	ob.publish(device.OwnerID, usecase.EventAlertNotification, &usecase.AlertNotificationData{
		AlertType: usecase.ToastSuccess,
		Title:     "Command completed",
		Message:   fmt.Sprintf("%s turned %s", device.Name, command.Action),
		DeviceID:  device.DeviceID,
	})

	return nil
}

// applySystemOutcome handles device-less commands. A completed test alert
// verifies the controller owner's phone number.
func (srv *commandService) applySystemOutcome(ctx context.Context, repoFactory repository.RepositoryFactory, command *entity.Command, now time.Time, ob *outbox) error {
	controller, err := repoFactory.NewControllerRepository().FindByID(ctx, command.ControllerID)
	if errors.Is(err, repository.ErrControllerNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to find command controller")
	}

	ob.publish(controller.OwnerID, usecase.EventCommandUpdate, commandUpdateData(command, "", now, srv.timeout))

	if command.Action != entity.ActionTestAlert || command.Status != entity.CommandCompleted || controller.OwnerID == nil {
		return nil
	}

	userRepo := repoFactory.NewUserRepository()
	user, err := userRepo.FindByID(ctx, *controller.OwnerID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to find controller owner")
	}

	user.PhoneVerified = true
	if err := userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to verify phone number")
	}

	entry := &entity.ActivityLogEntry{
		ID:           uuid.New(),
		UserID:       &user.ID,
		ControllerID: &controller.ID,
		LogType:      entity.LogInfo,
		ActionType:   entity.ActionAccount,
		Message:      "Phone number verified",
		Source:       entity.SourceController,
		CreatedAt:    now,
	}
	if err := repoFactory.NewActivityLogRepository().CreateEntry(ctx, entry); err != nil {
		return errors.Wrap(err, "failed to record phone verification")
	}

	ob.publish(&user.ID, usecase.EventAlertNotification, &usecase.AlertNotificationData{
		AlertType: usecase.ToastSuccess,
		Title:     "Phone verified",
		Message:   "Test alert delivered to " + user.PhoneNumber,
	})

	return nil
}

// CommandStatus reports a command with its remaining time budget.
func (srv *commandService) CommandStatus(ctx context.Context, commandID uuid.UUID) (*usecase.CommandStatusOutput, error) {
	command, err := srv.commandRepo.FindByID(ctx, commandID)
	if errors.Is(err, repository.ErrCommandNotFound) {
		return nil, domainerrors.ErrCommandNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find command")
	}

	output := &usecase.CommandStatusOutput{Command: command}
	if !command.Status.IsTerminal() {
		output.TimeRemaining = command.TimeRemaining(srv.clock.Now(), srv.timeout)
	}

	if command.DeviceID != nil {
		device, err := srv.deviceRepo.FindByID(ctx, *command.DeviceID)
		if err != nil && !errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, errors.Wrap(err, "failed to find command device")
		}
		if device != nil {
			output.DeviceID = device.DeviceID
		}
	}

	return output, nil
}

// EmergencyShutdown submits "off" to every switched-on device of the user.
// Per-device failures are reported in the result instead of aborting.
func (srv *commandService) EmergencyShutdown(ctx context.Context, email string) ([]*usecase.ShutdownResult, error) {
	user, err := findUserByEmail(ctx, srv.userRepo, email)
	if err != nil {
		return nil, err
	}

	devices, err := srv.deviceRepo.FindPairedByOwner(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	results := make([]*usecase.ShutdownResult, 0, len(devices))
	for _, device := range devices {
		if device.Status != entity.DeviceOn {
			continue
		}

		result := &usecase.ShutdownResult{DeviceID: device.DeviceID}
		command, err := srv.Submit(ctx, device.DeviceID, entity.ActionOff)
		switch {
		case err == nil:
			result.Outcome = usecase.ShutdownQueued
			result.CommandID = &command.ID
		case errors.Is(err, domainerrors.ErrCommandInProgress):
			result.Outcome = usecase.ShutdownConflict
			result.Error = err.Error()
		case errors.Is(err, domainerrors.ErrDeviceNotConnected):
			result.Outcome = usecase.ShutdownNotConnected
			result.Error = err.Error()
		default:
			result.Outcome = usecase.ShutdownFailed
			result.Error = err.Error()
			srv.log(ctx).Error("Emergency shutdown failed for device",
				slog.String("device_id", device.DeviceID),
				slog.Any("error", err))
		}
		results = append(results, result)
	}

	srv.log(ctx).Warn("Emergency shutdown requested",
		slog.String("user_id", user.ID.String()),
		slog.Int("devices", len(results)))

	return results, nil
}
