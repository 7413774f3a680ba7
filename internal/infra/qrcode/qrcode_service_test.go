package qrcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQRCodeService(t *testing.T) {
	tests := []struct {
		name                 string
		size                 int
		errorCorrectionLevel string
	}{
		{"Low error correction", 256, "L"},
		{"Medium error correction", 256, "M"},
		{"High error correction", 256, "Q"},
		{"Highest error correction", 256, "H"},
		{"Default error correction", 256, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewQRCodeService(tt.size, tt.errorCorrectionLevel)
			assert.NotNil(t, service)
		})
	}
}

func TestQRCodeService_GeneratePairingQR(t *testing.T) {
	service := NewQRCodeService(256, "M")

	qrBytes, err := service.GeneratePairingQR("ctrl-1-kitchen", "123456")
	require.NoError(t, err)
	require.NotEmpty(t, qrBytes)

	// PNG magic number
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, qrBytes[:4])
}

func TestQRCodeService_GeneratePairingQR_MissingFields(t *testing.T) {
	service := NewQRCodeService(256, "M")

	_, err := service.GeneratePairingQR("", "123456")
	assert.Error(t, err)

	_, err = service.GeneratePairingQR("ctrl-1-kitchen", "")
	assert.Error(t, err)
}

func TestPairingPayload(t *testing.T) {
	assert.Equal(t, "device_id:ctrl-1-fan|pairing_code:654321", PairingPayload("ctrl-1-fan", "654321"))
}

func TestQRCodeService_ParsePairingQR(t *testing.T) {
	service := NewQRCodeService(256, "M")

	tests := []struct {
		name        string
		input       string
		deviceID    string
		pairingCode string
		wantErr     string
	}{
		{
			name:        "generated payload",
			input:       PairingPayload("ctrl-1-kitchen", "123456"),
			deviceID:    "ctrl-1-kitchen",
			pairingCode: "123456",
		},
		{
			name:        "reordered with whitespace",
			input:       " pairing_code: 000042 | device_id: abc ",
			deviceID:    "abc",
			pairingCode: "000042",
		},
		{
			name:        "unknown fields ignored",
			input:       "device_id:abc|pairing_code:111111|version:2",
			deviceID:    "abc",
			pairingCode: "111111",
		},
		{name: "not a payload", input: "hello", wantErr: "malformed QR code field"},
		{name: "missing code", input: "device_id:abc", wantErr: "missing pairing_code"},
		{name: "missing device", input: "pairing_code:111111", wantErr: "missing device_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deviceID, pairingCode, err := service.ParsePairingQR(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.deviceID, deviceID)
			assert.Equal(t, tt.pairingCode, pairingCode)
		})
	}
}
