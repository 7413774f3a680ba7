package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
)

const (
	digits       = "0123456789"
	upperAlnum   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeWidth = 64
)

// RandomDigits returns n cryptographically random decimal digits.
func RandomDigits(n int) (string, error) {
	return randomFrom(digits, n)
}

// RandomUpperAlnum returns n random characters from [A-Z0-9].
func RandomUpperAlnum(n int) (string, error) {
	return randomFrom(upperAlnum, n)
}

func randomFrom(alphabet string, n int) (string, error) {
	if n <= 0 || n > maxCodeWidth {
		return "", errors.Errorf("invalid code length: %d", n)
	}

	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", errors.Wrap(err, "failed to read random source")
		}
		out[i] = alphabet[idx.Int64()]
	}

	return string(out), nil
}

// FormatDuration formats duration into human readable format (e.g., "1h30m", "5m10s", "45s").
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	}

	if duration < time.Hour {
		m := int(duration.Minutes())
		s := int(duration.Seconds()) % 60

		return fmt.Sprintf("%dm%ds", m, s)
	}

	h := int(duration.Hours())
	m := int(duration.Minutes()) % 60

	return fmt.Sprintf("%dh%dm", h, m)
}
