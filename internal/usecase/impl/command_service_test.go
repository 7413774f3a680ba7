package impl

import (
	"testing"
	"time"

	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/infra/persistence/model"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandService_KitchenEndToEnd(t *testing.T) {
	h := newHarness(t)
	user := h.onboard(t, "alice@example.com")

	out := h.register(t, "C1", "kitchen", "fan")
	assert.Equal(t, 2, out.DevicesCreated)

	kitchen := h.device(t, "C1-kitchen")
	fan := h.device(t, "C1-fan")
	assert.Equal(t, "kitchen", kitchen.HardwarePin)
	assert.Equal(t, "fan", fan.HardwarePin)
	assert.False(t, kitchen.IsPaired)
	assert.False(t, fan.IsPaired)

	paired := h.pair(t, user.Email, kitchen.DeviceID)
	require.NotNil(t, paired.OwnerID)
	assert.Equal(t, user.ID, *paired.OwnerID)

	controller, err := h.controllerRepo.FindByControllerID(h.ctx, "C1")
	require.NoError(t, err)
	require.NotNil(t, controller.OwnerID)
	assert.Equal(t, user.ID, *controller.OwnerID)

	command, err := h.commands.Submit(h.ctx, kitchen.DeviceID, entity.ActionOn)
	require.NoError(t, err)
	assert.Equal(t, entity.CommandPending, command.Status)

	issued, err := h.commands.Poll(h.ctx, "C1")
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, command.ID, issued[0].CommandID)
	assert.Equal(t, "kitchen", issued[0].Channel)
	assert.Equal(t, entity.ActionOn, issued[0].Action)
	assert.Equal(t, entity.CommandExecuting, h.command(t, command.ID).Status)

	h.fanout.reset()
	h.clock.Advance(time.Second)

	result, err := h.commands.ReportOutcome(h.ctx, command.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, entity.CommandCompleted, result.Status)
	assert.Equal(t, entity.DeviceOn, h.device(t, kitchen.DeviceID).Status)

	assert.Len(t, h.fanout.ofType(usecase.EventDeviceStatus), 1)
	assert.Len(t, h.fanout.ofType(usecase.EventCommandUpdate), 1)
	require.Len(t, h.fanout.toasts(usecase.ToastSuccess), 1)
	for _, ev := range h.fanout.events {
		assert.Equal(t, user.ID, ev.userID)
	}

	// A second completion of the same action inside the dedup window stays silent.
	h.fanout.reset()
	h.clock.Advance(2 * time.Second)

	second, err := h.commands.Submit(h.ctx, kitchen.DeviceID, entity.ActionOn)
	require.NoError(t, err)
	_, err = h.commands.Poll(h.ctx, "C1")
	require.NoError(t, err)
	_, err = h.commands.ReportOutcome(h.ctx, second.ID, true, "")
	require.NoError(t, err)

	assert.Empty(t, h.fanout.toasts(usecase.ToastSuccess))
}

func TestCommandService_SuccessToastAfterDedupWindow(t *testing.T) {
	h := newHarness(t)
	_, device := h.pairedDevice(t, "bob@example.com", "C2", "kitchen")

	for range 2 {
		command, err := h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOn)
		require.NoError(t, err)
		_, err = h.commands.ReportOutcome(h.ctx, command.ID, true, "")
		require.NoError(t, err)
		h.clock.Advance(6 * time.Second)
	}

	assert.Len(t, h.fanout.toasts(usecase.ToastSuccess), 2)
}

func TestCommandService_Submit_ConflictWithinTimeout(t *testing.T) {
	h := newHarness(t)
	_, device := h.pairedDevice(t, "carol@example.com", "C3", "fan")

	first, err := h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOn)
	require.NoError(t, err)

	h.clock.Advance(29 * time.Second)

	_, err = h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOff)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrCommandInProgress))

	var conflict *domainerrors.CommandConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, first.ID.String(), conflict.CommandID)
	assert.Equal(t, string(entity.CommandPending), conflict.Status)
	assert.Equal(t, 1, conflict.TimeRemaining)
}

func TestCommandService_Submit_SelfHealsAfterTimeout(t *testing.T) {
	h := newHarness(t)
	_, device := h.pairedDevice(t, "dave@example.com", "C4", "kitchen")

	first, err := h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOn)
	require.NoError(t, err)

	h.clock.Advance(30 * time.Second)

	second, err := h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOff)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	stale := h.command(t, first.ID)
	assert.Equal(t, entity.CommandFailed, stale.Status)
	assert.Equal(t, entity.CommandTimeoutError, stale.Error)
	assert.Equal(t, entity.CommandPending, h.command(t, second.ID).Status)
}

func TestCommandService_AtMostOneOutstandingPerDevice(t *testing.T) {
	h := newHarness(t)
	_, device := h.pairedDevice(t, "erin@example.com", "C5", "kitchen")

	for i := range 12 {
		_, _ = h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOn)
		if i%3 == 0 {
			_, err := h.commands.Poll(h.ctx, "C5")
			require.NoError(t, err)
		}
		h.clock.Advance(7 * time.Second)

		var outstanding int64
		require.NoError(t, h.db.Model(&model.CommandModel{}).
			Where("device_id = ? AND status IN ?", device.ID, []string{"pending", "executing"}).
			Count(&outstanding).Error)
		assert.LessOrEqual(t, outstanding, int64(1))
	}
}

func TestCommandService_Submit_Errors(t *testing.T) {
	h := newHarness(t)
	h.onboard(t, "frank@example.com")
	h.register(t, "C6", "kitchen")

	tests := []struct {
		name     string
		deviceID string
		action   string
		want     error
	}{
		{name: "blank device", deviceID: " ", action: "on", want: domainerrors.ErrValidationFailed},
		{name: "blank action", deviceID: "C6-kitchen", action: "", want: domainerrors.ErrValidationFailed},
		{name: "unknown device", deviceID: "nope", action: "on", want: domainerrors.ErrDeviceNotFound},
		{name: "unpaired device", deviceID: "C6-kitchen", action: "on", want: domainerrors.ErrDeviceNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.commands.Submit(h.ctx, tt.deviceID, tt.action)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCommandService_Poll_ReapsAndLimitsBatch(t *testing.T) {
	h := newHarness(t)
	user := h.onboard(t, "gina@example.com")

	channels := []string{"socket1", "socket2", "socket3", "socket4", "kitchen", "fan", "light", "bedroom", "bathroom", "living_room", "socket"}
	h.register(t, "C7", channels...)
	for _, channel := range channels {
		h.pair(t, user.Email, entity.ChannelDeviceID("C7", channel))
	}

	var ids []uuid.UUID
	for _, channel := range channels {
		command, err := h.commands.Submit(h.ctx, entity.ChannelDeviceID("C7", channel), entity.ActionOn)
		require.NoError(t, err)
		ids = append(ids, command.ID)
		h.clock.Advance(time.Second)
	}

	issued, err := h.commands.Poll(h.ctx, "C7")
	require.NoError(t, err)
	require.Len(t, issued, 10)
	for i, cmd := range issued {
		assert.Equal(t, ids[i], cmd.CommandID)
	}

	// Executing commands are re-issued on the next poll.
	again, err := h.commands.Poll(h.ctx, "C7")
	require.NoError(t, err)
	assert.Len(t, again, 10)

	h.clock.Advance(time.Minute)
	after, err := h.commands.Poll(h.ctx, "C7")
	require.NoError(t, err)
	assert.Empty(t, after)
	for _, id := range ids {
		assert.Equal(t, entity.CommandFailed, h.command(t, id).Status)
	}
}

func TestCommandService_Poll_UnknownController(t *testing.T) {
	h := newHarness(t)

	_, err := h.commands.Poll(h.ctx, "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrControllerNotRegistered))
}

func TestCommandService_ReportOutcome_FailureKeepsOptimisticStatus(t *testing.T) {
	h := newHarness(t)
	_, device := h.pairedDevice(t, "hank@example.com", "C8", "kitchen")

	command, err := h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOn)
	require.NoError(t, err)
	assert.Equal(t, entity.DeviceOn, h.device(t, device.DeviceID).Status)

	h.fanout.reset()
	result, err := h.commands.ReportOutcome(h.ctx, command.ID, false, "relay stuck")
	require.NoError(t, err)
	assert.Equal(t, entity.CommandFailed, result.Status)
	assert.Equal(t, "relay stuck", result.Error)
	assert.Equal(t, entity.DeviceOn, h.device(t, device.DeviceID).Status)

	failed := h.fanout.toasts(usecase.ToastCommandFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Message, "relay stuck")
	assert.Empty(t, h.fanout.toasts(usecase.ToastSuccess))
}

func TestCommandService_ReportOutcome_TerminalIsIdempotent(t *testing.T) {
	h := newHarness(t)
	_, device := h.pairedDevice(t, "ivan@example.com", "C9", "kitchen")

	command, err := h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOn)
	require.NoError(t, err)
	_, err = h.commands.ReportOutcome(h.ctx, command.ID, true, "")
	require.NoError(t, err)

	h.fanout.reset()
	again, err := h.commands.ReportOutcome(h.ctx, command.ID, false, "late")
	require.NoError(t, err)
	assert.Equal(t, entity.CommandCompleted, again.Status)
	assert.Empty(t, h.fanout.events)

	_, err = h.commands.ReportOutcome(h.ctx, uuid.New(), true, "")
	assert.True(t, errors.Is(err, domainerrors.ErrCommandNotFound))
}

func TestCommandService_CommandStatus(t *testing.T) {
	h := newHarness(t)
	_, device := h.pairedDevice(t, "judy@example.com", "C10", "kitchen")

	command, err := h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOn)
	require.NoError(t, err)

	h.clock.Advance(10 * time.Second)
	status, err := h.commands.CommandStatus(h.ctx, command.ID)
	require.NoError(t, err)
	assert.Equal(t, device.DeviceID, status.DeviceID)
	assert.Equal(t, 20, status.TimeRemaining)

	_, err = h.commands.ReportOutcome(h.ctx, command.ID, true, "")
	require.NoError(t, err)
	status, err = h.commands.CommandStatus(h.ctx, command.ID)
	require.NoError(t, err)
	assert.Zero(t, status.TimeRemaining)
}

func TestCommandService_EmergencyShutdown(t *testing.T) {
	h := newHarness(t)
	user := h.onboard(t, "kim@example.com")
	h.register(t, "C11", "kitchen", "fan", "light")
	for _, channel := range []string{"kitchen", "fan", "light"} {
		h.pair(t, user.Email, entity.ChannelDeviceID("C11", channel))
	}

	// kitchen: on and idle; fan: on with a command in flight; light: off.
	kitchenCmd, err := h.commands.Submit(h.ctx, "C11-kitchen", entity.ActionOn)
	require.NoError(t, err)
	_, err = h.commands.ReportOutcome(h.ctx, kitchenCmd.ID, true, "")
	require.NoError(t, err)
	_, err = h.commands.Submit(h.ctx, "C11-fan", entity.ActionOn)
	require.NoError(t, err)

	results, err := h.commands.EmergencyShutdown(h.ctx, user.Email)
	require.NoError(t, err)
	require.Len(t, results, 2)

	outcomes := make(map[string]string, len(results))
	for _, r := range results {
		outcomes[r.DeviceID] = r.Outcome
	}
	assert.Equal(t, usecase.ShutdownQueued, outcomes["C11-kitchen"])
	assert.Equal(t, usecase.ShutdownConflict, outcomes["C11-fan"])

	_, err = h.commands.EmergencyShutdown(h.ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, domainerrors.ErrUserNotFound))
}

func TestCommandService_TestAlertVerifiesPhone(t *testing.T) {
	h := newHarness(t)
	user, _ := h.pairedDevice(t, "leo@example.com", "C12", "kitchen")

	command, err := h.identity.VerifyPhone(h.ctx, user.Email, "+15550100")
	require.NoError(t, err)
	assert.Nil(t, command.DeviceID)
	assert.Equal(t, entity.ActionTestAlert, command.Action)

	issued, err := h.commands.Poll(h.ctx, "C12")
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Empty(t, issued[0].Channel)

	h.fanout.reset()
	_, err = h.commands.ReportOutcome(h.ctx, command.ID, true, "")
	require.NoError(t, err)

	verified, err := h.userRepo.FindByID(h.ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, verified.PhoneVerified)
	require.Len(t, h.fanout.toasts(usecase.ToastSuccess), 1)
	assert.Equal(t, user.ID, h.fanout.ofType(usecase.EventAlertNotification)[0].userID)
}
