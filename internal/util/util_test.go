package util

import (
	"strings"
	"testing"
	"time"
)

func TestRandomDigits(t *testing.T) {
	t.Parallel()

	code, err := RandomDigits(6)
	if err != nil {
		t.Fatalf("RandomDigits(6) error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("RandomDigits(6) = %q, want 6 characters", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("RandomDigits(6) = %q, contains non-digit %q", code, r)
		}
	}
}

func TestRandomUpperAlnum(t *testing.T) {
	t.Parallel()

	id, err := RandomUpperAlnum(12)
	if err != nil {
		t.Fatalf("RandomUpperAlnum(12) error: %v", err)
	}
	if len(id) != 12 {
		t.Fatalf("RandomUpperAlnum(12) = %q, want 12 characters", id)
	}
	if strings.ToUpper(id) != id {
		t.Fatalf("RandomUpperAlnum(12) = %q, want upper case", id)
	}
}

func TestRandomFrom_RejectsInvalidLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1, maxCodeWidth + 1} {
		if _, err := RandomDigits(n); err == nil {
			t.Fatalf("RandomDigits(%d) expected error", n)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{name: "under one minute", duration: 45 * time.Second, expected: "45s"},
		{name: "rounded second to minute", duration: 59*time.Second + 500*time.Millisecond, expected: "1m0s"},
		{name: "minutes and seconds", duration: 2*time.Minute + 30*time.Second, expected: "2m30s"},
		{name: "hours and minutes", duration: time.Hour + 30*time.Minute, expected: "1h30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatDuration(tt.duration); got != tt.expected {
				t.Fatalf("FormatDuration(%s) = %s, want %s", tt.duration, got, tt.expected)
			}
		})
	}
}
