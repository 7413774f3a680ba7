package qrcode

import (
	"fmt"
	"strings"

	"homeswitch/internal/domain/service"

	"github.com/skip2/go-qrcode"
)

const (
	deviceIDField    = "device_id"
	pairingCodeField = "pairing_code"
	fieldSeparator   = "|"
	valueSeparator   = ":"
)

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
}

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(size int, errorCorrectionLevel string) service.QRCodeService {
	// Set error correction level
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
	}
}

// PairingPayload renders the text encoded in a device's pairing QR code,
// e.g. "device_id:ctrl-1-kitchen|pairing_code:123456".
func PairingPayload(deviceID, pairingCode string) string {
	return deviceIDField + valueSeparator + deviceID + fieldSeparator + pairingCodeField + valueSeparator + pairingCode
}

// GeneratePairingQR generates a PNG QR code carrying the pairing payload of a device
func (s *qrcodeService) GeneratePairingQR(deviceID, pairingCode string) ([]byte, error) {
	if deviceID == "" || pairingCode == "" {
		return nil, fmt.Errorf("device id and pairing code are required")
	}

	qrCode, err := qrcode.New(PairingPayload(deviceID, pairingCode), s.errorCorrectionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	return pngBytes, nil
}

// ParsePairingQR parses scanned pairing QR data. Fields may appear in any order.
func (s *qrcodeService) ParsePairingQR(qrData string) (deviceID, pairingCode string, err error) {
	for _, field := range strings.Split(strings.TrimSpace(qrData), fieldSeparator) {
		key, value, ok := strings.Cut(field, valueSeparator)
		if !ok {
			return "", "", fmt.Errorf("malformed QR code field: %q", field)
		}

		switch strings.TrimSpace(key) {
		case deviceIDField:
			deviceID = strings.TrimSpace(value)
		case pairingCodeField:
			pairingCode = strings.TrimSpace(value)
		}
	}

	if deviceID == "" {
		return "", "", fmt.Errorf("QR code is missing %s", deviceIDField)
	}
	if pairingCode == "" {
		return "", "", fmt.Errorf("QR code is missing %s", pairingCodeField)
	}

	return deviceID, pairingCode, nil
}
