package service

// QRCodeService defines the interface for pairing QR code generation and parsing
type QRCodeService interface {
	// GeneratePairingQR renders the pairing payload of a device as a PNG
	GeneratePairingQR(deviceID, pairingCode string) ([]byte, error)

	// ParsePairingQR extracts the device id and pairing code from scanned QR data
	ParsePairingQR(qrData string) (deviceID, pairingCode string, err error)
}
