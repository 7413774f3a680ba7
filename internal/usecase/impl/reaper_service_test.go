package impl

import (
	"testing"
	"time"

	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaperService_SweepAll_ReapsStaleCommands(t *testing.T) {
	h := newHarness(t)
	user, device := h.pairedDevice(t, "reaper@example.com", "R1", "kitchen")

	command, err := h.commands.Submit(h.ctx, device.DeviceID, entity.ActionOn)
	require.NoError(t, err)

	h.clock.Advance(29 * time.Second)
	result, err := h.reaper.SweepAll(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, result.CommandsReaped)

	h.fanout.reset()
	h.clock.Advance(time.Second)
	result, err = h.reaper.SweepAll(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CommandsReaped)
	assert.Zero(t, result.ControllersOffline)

	reaped := h.command(t, command.ID)
	assert.Equal(t, entity.CommandFailed, reaped.Status)
	assert.Equal(t, entity.CommandTimeoutError, reaped.Error)
	require.NotNil(t, reaped.ExecutedAt)

	updates := h.fanout.ofType(usecase.EventCommandUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, user.ID, updates[0].userID)
	data, ok := updates[0].data.(*usecase.CommandUpdateData)
	require.True(t, ok)
	assert.Equal(t, string(entity.CommandFailed), data.Status)
	assert.Equal(t, device.DeviceID, data.DeviceID)
}

func TestReaperService_SweepAll_TakesSilentControllersOffline(t *testing.T) {
	h := newHarness(t)
	h.onboard(t, "offline@example.com")
	h.register(t, "R2", "kitchen", "fan")
	h.pair(t, "offline@example.com", "R2-kitchen")

	h.clock.Advance(2*time.Minute + time.Second)
	result, err := h.reaper.SweepAll(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ControllersOffline)
	assert.Equal(t, 1, result.AlertsRaised)

	controller, err := h.controllerRepo.FindByControllerID(h.ctx, "R2")
	require.NoError(t, err)
	assert.Equal(t, entity.ControllerOffline, controller.Status)

	offline := h.fanout.toasts(string(entity.AlertOffline))
	require.Len(t, offline, 1)
	assert.Equal(t, "R2-kitchen", offline[0].DeviceID)
	assert.Contains(t, offline[0].Message, "stopped reporting 2m1s ago")

	result, err = h.reaper.SweepAll(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, result.ControllersOffline)
	assert.Zero(t, result.AlertsRaised)
}

func TestReaperService_ReapController(t *testing.T) {
	h := newHarness(t)
	_, first := h.pairedDevice(t, "one@example.com", "R3", "kitchen")
	_, second := h.pairedDevice(t, "two@example.com", "R4", "kitchen")

	_, err := h.commands.Submit(h.ctx, first.DeviceID, entity.ActionOn)
	require.NoError(t, err)
	other, err := h.commands.Submit(h.ctx, second.DeviceID, entity.ActionOn)
	require.NoError(t, err)

	h.clock.Advance(45 * time.Second)
	count, err := h.reaper.ReapController(h.ctx, "R3")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, entity.CommandPending, h.command(t, other.ID).Status)

	_, err = h.reaper.ReapController(h.ctx, "ghost")
	assert.True(t, errors.Is(err, domainerrors.ErrControllerNotRegistered))
}
