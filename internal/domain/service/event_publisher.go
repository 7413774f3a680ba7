package service

import (
	"context"
)

// AlertEvent is handed to the push worker for every accepted alert.
type AlertEvent struct {
	RequestID  string `json:"request_id,omitempty"`  // For distributed tracing
	ReportedBy string `json:"reported_by,omitempty"` // Controller whose request raised the alert
	AlertID    string `json:"alert_id"`
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id"`
	AlertType  string `json:"alert_type"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAlertEvent publishes an alert for asynchronous push delivery
	PublishAlertEvent(ctx context.Context, event *AlertEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
