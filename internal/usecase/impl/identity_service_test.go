package impl

import (
	"testing"

	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/infra/qrcode"
	"homeswitch/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityService_RegisterController_Idempotent(t *testing.T) {
	h := newHarness(t)

	first := h.register(t, "ctrl-1", "kitchen", " fan ", "kitchen", "")
	assert.Equal(t, 2, first.DevicesCreated)
	assert.Equal(t, entity.ControllerOnline, first.Controller.Status)
	assert.Equal(t, "Controller rl-1", first.Controller.Name)

	second := h.register(t, "ctrl-1", "kitchen", "fan")
	assert.Zero(t, second.DevicesCreated)
	assert.Equal(t, first.Controller.ID, second.Controller.ID)

	devices, err := h.deviceRepo.FindByController(h.ctx, first.Controller.ID)
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	fan := h.device(t, "ctrl-1-fan")
	assert.Equal(t, entity.DeviceTypeFan, fan.Type)
	assert.Equal(t, "Fan", fan.Name)
	assert.Len(t, fan.PairingCode, 6)
}

func TestIdentityService_RegisterController_RequiresID(t *testing.T) {
	h := newHarness(t)

	_, err := h.identity.RegisterController(h.ctx, &usecase.RegisterControllerInput{ControllerID: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestIdentityService_PairedChannelIsImmutable(t *testing.T) {
	h := newHarness(t)
	user := h.onboard(t, "pin@example.com")
	h.register(t, "ctrl-2", "kitchen")

	paired, err := h.identity.ReconcilePairing(h.ctx, &usecase.PairDeviceInput{
		Email:       user.Email,
		DeviceID:    "ctrl-2-kitchen",
		PairingCode: h.device(t, "ctrl-2-kitchen").PairingCode,
		DisplayName: "Kettle",
		DeviceType:  "socket",
	})
	require.NoError(t, err)
	assert.Equal(t, "Kettle", paired.Name)

	h.register(t, "ctrl-2", "kitchen", "fan")
	h.pair(t, user.Email, "ctrl-2-kitchen")

	device := h.device(t, "ctrl-2-kitchen")
	assert.Equal(t, "kitchen", device.HardwarePin)
	assert.Equal(t, "Kettle", device.Name)
	assert.Equal(t, entity.DeviceTypeSocket, device.Type)
	assert.True(t, device.IsPaired)
}

func TestIdentityService_ReconcilePairing_Errors(t *testing.T) {
	h := newHarness(t)
	owner := h.onboard(t, "owner@example.com")
	h.onboard(t, "intruder@example.com")
	h.register(t, "ctrl-3", "kitchen", "fan")
	h.pair(t, owner.Email, "ctrl-3-kitchen")

	kitchen := h.device(t, "ctrl-3-kitchen")
	fan := h.device(t, "ctrl-3-fan")

	tests := []struct {
		name  string
		input *usecase.PairDeviceInput
		want  error
	}{
		{
			name:  "wrong code",
			input: &usecase.PairDeviceInput{Email: owner.Email, DeviceID: fan.DeviceID, PairingCode: "000000x"},
			want:  domainerrors.ErrInvalidPairingCode,
		},
		{
			name:  "unknown device",
			input: &usecase.PairDeviceInput{Email: owner.Email, DeviceID: "ctrl-3-attic", PairingCode: fan.PairingCode},
			want:  domainerrors.ErrInvalidPairingCode,
		},
		{
			name:  "owned by someone else",
			input: &usecase.PairDeviceInput{Email: "intruder@example.com", DeviceID: kitchen.DeviceID, PairingCode: kitchen.PairingCode},
			want:  domainerrors.ErrDeviceAlreadyPaired,
		},
		{
			name:  "unknown user",
			input: &usecase.PairDeviceInput{Email: "ghost@example.com", DeviceID: fan.DeviceID, PairingCode: fan.PairingCode},
			want:  domainerrors.ErrUserNotFound,
		},
		{
			name:  "bad device type",
			input: &usecase.PairDeviceInput{Email: owner.Email, DeviceID: fan.DeviceID, PairingCode: fan.PairingCode, DeviceType: "toaster"},
			want:  domainerrors.ErrValidationFailed,
		},
		{
			name:  "missing code",
			input: &usecase.PairDeviceInput{Email: owner.Email, DeviceID: fan.DeviceID},
			want:  domainerrors.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.identity.ReconcilePairing(h.ctx, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestIdentityService_ReconcilePairing_ForeignRoomIgnored(t *testing.T) {
	h := newHarness(t)
	owner := h.onboard(t, "rooms@example.com")
	other := h.onboard(t, "neighbour@example.com")
	h.register(t, "ctrl-4", "kitchen", "fan")

	foreign, err := h.identity.CreateRoom(h.ctx, other.Email, "Garage", "")
	require.NoError(t, err)
	own, err := h.identity.CreateRoom(h.ctx, owner.Email, "Kitchen", "")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultRoomIcon, own.Icon)

	kitchen, err := h.identity.ReconcilePairing(h.ctx, &usecase.PairDeviceInput{
		Email:       owner.Email,
		DeviceID:    "ctrl-4-kitchen",
		PairingCode: h.device(t, "ctrl-4-kitchen").PairingCode,
		RoomID:      &foreign.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, kitchen.RoomID)

	fan, err := h.identity.ReconcilePairing(h.ctx, &usecase.PairDeviceInput{
		Email:       owner.Email,
		DeviceID:    "ctrl-4-fan",
		PairingCode: h.device(t, "ctrl-4-fan").PairingCode,
		RoomID:      &own.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, fan.RoomID)
	assert.Equal(t, own.ID, *fan.RoomID)

	views, err := h.identity.ListDevices(h.ctx, owner.Email)
	require.NoError(t, err)
	require.Len(t, views, 2)
	names := map[string]string{}
	for _, view := range views {
		names[view.DeviceID] = view.RoomName
	}
	assert.Equal(t, "Kitchen", names["ctrl-4-fan"])
	assert.Empty(t, names["ctrl-4-kitchen"])
}

func TestIdentityService_UnpairIssuesNewCode(t *testing.T) {
	h := newHarness(t)
	user, device := h.pairedDevice(t, "unpair@example.com", "ctrl-5", "kitchen")
	oldCode := h.device(t, device.DeviceID).PairingCode

	require.NoError(t, h.identity.UnpairDevice(h.ctx, user.Email, device.DeviceID))

	unpaired := h.device(t, device.DeviceID)
	assert.False(t, unpaired.IsPaired)
	assert.Nil(t, unpaired.OwnerID)
	assert.Equal(t, entity.DeviceOff, unpaired.Status)
	assert.NotEqual(t, oldCode, unpaired.PairingCode)
	assert.Equal(t, "kitchen", unpaired.HardwarePin)

	_, err := h.identity.ReconcilePairing(h.ctx, &usecase.PairDeviceInput{
		Email:       user.Email,
		DeviceID:    device.DeviceID,
		PairingCode: oldCode,
	})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidPairingCode))

	err = h.identity.UnpairDevice(h.ctx, user.Email, device.DeviceID)
	assert.True(t, errors.Is(err, domainerrors.ErrDeviceNotFound))
}

func TestIdentityService_PairingCodesAreUnique(t *testing.T) {
	h := newHarness(t)
	h.register(t, "ctrl-6", "socket1", "socket2", "socket3", "socket4", "kitchen", "fan", "light")
	h.register(t, "ctrl-7", "socket1", "socket2", "socket3", "socket4", "kitchen", "fan", "light")

	devices, err := h.deviceRepo.ListAll(h.ctx)
	require.NoError(t, err)
	require.Len(t, devices, 14)

	seen := make(map[string]string, len(devices))
	for _, device := range devices {
		prev, dup := seen[device.PairingCode]
		assert.False(t, dup, "code %s shared by %s and %s", device.PairingCode, prev, device.DeviceID)
		seen[device.PairingCode] = device.DeviceID
	}
}

func TestIdentityService_PairFromQR(t *testing.T) {
	h := newHarness(t)
	user := h.onboard(t, "qr@example.com")
	h.register(t, "ctrl-8", "fan")

	device := h.device(t, "ctrl-8-fan")
	png, err := h.identity.PairingQR(h.ctx, device.DeviceID)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	paired, err := h.identity.PairFromQR(h.ctx, &usecase.PairFromQRInput{
		Email:  user.Email,
		QRData: qrcode.PairingPayload(device.DeviceID, device.PairingCode),
	})
	require.NoError(t, err)
	assert.True(t, paired.IsPaired)

	_, err = h.identity.PairingQR(h.ctx, device.DeviceID)
	assert.True(t, errors.Is(err, domainerrors.ErrDeviceAlreadyPaired))

	_, err = h.identity.PairFromQR(h.ctx, &usecase.PairFromQRInput{Email: user.Email, QRData: "garbage"})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidQRCode))
}

func TestIdentityService_OnboardingAndProfile(t *testing.T) {
	h := newHarness(t)

	user, err := h.identity.StartOnboarding(h.ctx, "  Mixed@Example.com ", "Mia")
	require.NoError(t, err)
	assert.Equal(t, "mixed@example.com", user.Email)

	again, err := h.identity.StartOnboarding(h.ctx, "mixed@example.com", "Other")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = h.identity.VerifyPhone(h.ctx, user.Email, "+15550199")
	assert.True(t, errors.Is(err, domainerrors.ErrNoControllerForUser))

	name := "Mia Park"
	updated, err := h.identity.UpdateProfile(h.ctx, &usecase.UpdateProfileInput{Email: "MIXED@example.com", FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Mia Park", updated.FullName)

	_, err = h.identity.CreateRoom(h.ctx, user.Email, "Office", "desk")
	require.NoError(t, err)
	_, err = h.identity.CreateRoom(h.ctx, user.Email, "Office", "desk")
	assert.True(t, errors.Is(err, domainerrors.ErrRoomAlreadyExists))
}
