package postgres

import (
	"context"
	"testing"
	"time"

	"homeswitch/internal/domain/entity"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(controllerID *uuid.UUID, pin, code string) *entity.Device {
	return &entity.Device{
		ID:           uuid.New(),
		DeviceID:     "ctrl-" + pin,
		HardwarePin:  pin,
		Name:         entity.DefaultDeviceName(pin),
		Type:         entity.DefaultDeviceType(pin),
		ControllerID: controllerID,
		PairingCode:  code,
		Status:       entity.DeviceOff,
		CreatedAt:    testBase,
		UpdatedAt:    testBase,
	}
}

func TestDeviceRepository_CreateDevice_Duplicates(t *testing.T) {
	repo := NewDeviceRepository(testutil.NewTestDB(t))
	ctx := context.Background()
	controllerID := uuid.New()

	require.NoError(t, repo.CreateDevice(ctx, newTestDevice(&controllerID, "kitchen", "111111")))

	samePin := newTestDevice(&controllerID, "kitchen", "222222")
	samePin.DeviceID = "other-kitchen"
	assert.ErrorIs(t, repo.CreateDevice(ctx, samePin), repository.ErrDuplicateDevice)

	sameCode := newTestDevice(&controllerID, "fan", "111111")
	assert.ErrorIs(t, repo.CreateDevice(ctx, sameCode), repository.ErrDuplicateDevice)

	exists, err := repo.PairingCodeExists(ctx, "111111")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.PairingCodeExists(ctx, "999999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeviceRepository_UpdateAndLookup(t *testing.T) {
	repo := NewDeviceRepository(testutil.NewTestDB(t))
	ctx := context.Background()
	controllerID := uuid.New()
	ownerID := uuid.New()

	device := newTestDevice(&controllerID, "fan", "333333")
	require.NoError(t, repo.CreateDevice(ctx, device))

	byPin, err := repo.FindByControllerAndPin(ctx, controllerID, "fan")
	require.NoError(t, err)
	assert.Equal(t, device.ID, byPin.ID)
	assert.Equal(t, entity.DeviceTypeFan, byPin.Type)

	seen := testBase.Add(time.Minute)
	value := 1.5
	device.OwnerID = &ownerID
	device.IsPaired = true
	device.Status = entity.DeviceOn
	device.LastSeen = &seen
	device.CurrentValue = &value
	require.NoError(t, repo.UpdateDevice(ctx, device))

	locked, err := repo.LockByDeviceID(ctx, device.DeviceID)
	require.NoError(t, err)
	assert.True(t, locked.IsPaired)
	assert.Equal(t, entity.DeviceOn, locked.Status)
	require.NotNil(t, locked.CurrentValue)
	assert.InDelta(t, 1.5, *locked.CurrentValue, 0.0001)

	paired, err := repo.FindPairedByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, paired, 1)

	_, err = repo.FindByDeviceID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrDeviceNotFound)

	missing := newTestDevice(&controllerID, "light", "444444")
	assert.ErrorIs(t, repo.UpdateDevice(ctx, missing), repository.ErrDeviceNotFound)
}

func TestControllerRepository_MarkOfflineSince(t *testing.T) {
	repo := NewControllerRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	staleSeen := testBase
	freshSeen := testBase.Add(3 * time.Minute)
	stale := &entity.Controller{ID: uuid.New(), ControllerID: "ctrl-stale", Status: entity.ControllerOnline, LastSeen: &staleSeen}
	fresh := &entity.Controller{ID: uuid.New(), ControllerID: "ctrl-fresh", Status: entity.ControllerOnline, LastSeen: &freshSeen}
	require.NoError(t, repo.CreateController(ctx, stale))
	require.NoError(t, repo.CreateController(ctx, fresh))

	changed, err := repo.MarkOfflineSince(ctx, testBase.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, stale.ID, changed[0].ID)
	assert.Equal(t, entity.ControllerOffline, changed[0].Status)

	again, err := repo.MarkOfflineSince(ctx, testBase.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, repo.Touch(ctx, stale.ID, testBase.Add(4*time.Minute)))
	got, err := repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ControllerOnline, got.Status)
}
