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

func TestAlertRepository_FindLatestSince(t *testing.T) {
	repo := NewAlertRepository(testutil.NewTestDB(t))
	ctx := context.Background()
	deviceID := uuid.New()

	old := &entity.Alert{ID: uuid.New(), DeviceID: deviceID, AlertType: entity.AlertOverload, CreatedAt: testBase}
	recent := &entity.Alert{ID: uuid.New(), DeviceID: deviceID, AlertType: entity.AlertOverload, CreatedAt: testBase.Add(5 * time.Minute)}
	require.NoError(t, repo.CreateAlert(ctx, old))
	require.NoError(t, repo.CreateAlert(ctx, recent))

	got, err := repo.FindLatestSince(ctx, deviceID, entity.AlertOverload, testBase)
	require.NoError(t, err)
	assert.Equal(t, recent.ID, got.ID)

	_, err = repo.FindLatestSince(ctx, deviceID, entity.AlertShortCircuit, testBase)
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)

	_, err = repo.FindLatestSince(ctx, deviceID, entity.AlertOverload, testBase.Add(6*time.Minute))
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
}

func TestAlertRepository_FindByOwnerAndResolve(t *testing.T) {
	db := testutil.NewTestDB(t)
	alerts := NewAlertRepository(db)
	devices := NewDeviceRepository(db)
	ctx := context.Background()
	ownerID := uuid.New()

	device := &entity.Device{
		ID:          uuid.New(),
		DeviceID:    "ctrl-1-kitchen",
		HardwarePin: "kitchen",
		Name:        "Kitchen",
		Type:        entity.DeviceTypeSocket,
		OwnerID:     &ownerID,
		IsPaired:    true,
		PairingCode: "123456",
		Status:      entity.DeviceOff,
	}
	require.NoError(t, devices.CreateDevice(ctx, device))

	first := &entity.Alert{ID: uuid.New(), DeviceID: device.ID, AlertType: entity.AlertOverload, CreatedAt: testBase}
	second := &entity.Alert{ID: uuid.New(), DeviceID: device.ID, AlertType: entity.AlertFault, CreatedAt: testBase.Add(time.Minute)}
	foreign := &entity.Alert{ID: uuid.New(), DeviceID: uuid.New(), AlertType: entity.AlertFault, CreatedAt: testBase}
	for _, alert := range []*entity.Alert{first, second, foreign} {
		require.NoError(t, alerts.CreateAlert(ctx, alert))
	}

	got, err := alerts.FindByOwner(ctx, ownerID, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)

	require.NoError(t, alerts.Resolve(ctx, second.ID))

	got, err = alerts.FindByOwner(ctx, ownerID, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)

	got, err = alerts.FindByOwner(ctx, ownerID, true)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assert.ErrorIs(t, alerts.Resolve(ctx, uuid.New()), repository.ErrAlertNotFound)
}
