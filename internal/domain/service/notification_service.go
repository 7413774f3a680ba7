package service

import (
	"context"
)

// PushMessage is an alert rendered for mobile push delivery.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
	// Urgent messages bypass battery optimizations and play the alarm sound.
	Urgent bool
}

// PushReport summarizes one delivery across every installation of a user.
type PushReport struct {
	Sent   int
	Failed int
	// Rejected lists tokens the provider reported as unregistered or malformed.
	Rejected []string
}

// PushNotifier delivers push messages to app installations.
type PushNotifier interface {
	Send(ctx context.Context, tokens []string, msg *PushMessage) (*PushReport, error)
}
