package impl

import (
	"testing"
	"time"

	deliverycontext "homeswitch/internal/delivery/context"
	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertService_Raise_CooldownWindow(t *testing.T) {
	h := newHarness(t)
	user, device := h.pairedDevice(t, "alerts@example.com", "A1", "kitchen")

	first, err := h.alerts.Raise(h.ctx, device.ID, nil, entity.AlertOverload, "")
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, "Overload detected on Kitchen", first.Alert.Message)
	require.NotNil(t, first.Alert.ControllerID)
	assert.Equal(t, *device.ControllerID, *first.Alert.ControllerID)

	h.clock.Advance(10 * time.Minute)
	again, err := h.alerts.Raise(h.ctx, device.ID, nil, entity.AlertOverload, "still overloaded")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, first.Alert.ID, again.Alert.ID)

	other, err := h.alerts.Raise(h.ctx, device.ID, nil, entity.AlertShortCircuit, "")
	require.NoError(t, err)
	assert.False(t, other.Duplicate)

	h.clock.Advance(time.Second)
	later, err := h.alerts.Raise(h.ctx, device.ID, nil, entity.AlertOverload, "")
	require.NoError(t, err)
	assert.False(t, later.Duplicate)
	assert.NotEqual(t, first.Alert.ID, later.Alert.ID)

	alerts, err := h.alerts.ListAlerts(h.ctx, user.Email, true)
	require.NoError(t, err)
	assert.Len(t, alerts, 3)
	assert.Len(t, h.fanout.ofType(usecase.EventAlertNotification), 3)
	assert.Equal(t, 3, h.publisher.count())

	_, err = h.alerts.Raise(h.ctx, uuid.New(), nil, entity.AlertOverload, "")
	assert.True(t, errors.Is(err, domainerrors.ErrDeviceNotFound))
}

func TestAlertService_RaiseFromController(t *testing.T) {
	h := newHarness(t)
	_, device := h.pairedDevice(t, "ctrlalert@example.com", "A2", "fan")

	ctx := deliverycontext.WithRequestID(deliverycontext.WithControllerID(h.ctx, "A2"), "req-a2")
	out, err := h.alerts.RaiseFromController(ctx, "A2", "fan", "SHORT", "")
	require.NoError(t, err)
	assert.Equal(t, entity.AlertShortCircuit, out.Alert.AlertType)
	assert.Equal(t, device.ID, out.Alert.DeviceID)

	require.Len(t, h.publisher.alerts, 1)
	event := h.publisher.alerts[0]
	assert.Equal(t, out.Alert.ID.String(), event.AlertID)
	assert.Equal(t, device.DeviceID, event.DeviceID)
	assert.Equal(t, *device.OwnerID, uuid.MustParse(event.UserID))
	assert.Equal(t, "A2", event.ReportedBy)
	assert.Equal(t, "req-a2", event.RequestID)

	tests := []struct {
		name       string
		controller string
		channel    string
		want       error
	}{
		{name: "blank channel", controller: "A2", channel: " ", want: domainerrors.ErrValidationFailed},
		{name: "unknown channel", controller: "A2", channel: "attic", want: domainerrors.ErrDeviceNotFound},
		{name: "unknown controller", controller: "ghost", channel: "fan", want: domainerrors.ErrControllerNotRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.alerts.RaiseFromController(h.ctx, tt.controller, tt.channel, "overload", "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAlertService_DismissAlert(t *testing.T) {
	h := newHarness(t)
	user, device := h.pairedDevice(t, "dismiss@example.com", "A3", "kitchen")
	h.onboard(t, "stranger@example.com")

	out, err := h.alerts.Raise(h.ctx, device.ID, nil, entity.AlertHighCurrent, "")
	require.NoError(t, err)

	err = h.alerts.DismissAlert(h.ctx, "stranger@example.com", out.Alert.ID)
	assert.True(t, errors.Is(err, domainerrors.ErrAlertNotFound))

	err = h.alerts.DismissAlert(h.ctx, user.Email, uuid.New())
	assert.True(t, errors.Is(err, domainerrors.ErrAlertNotFound))

	require.NoError(t, h.alerts.DismissAlert(h.ctx, user.Email, out.Alert.ID))

	open, err := h.alerts.ListAlerts(h.ctx, user.Email, false)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := h.alerts.ListAlerts(h.ctx, user.Email, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Resolved)
}
