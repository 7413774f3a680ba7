package usecase

import "context"

// ChannelStatus is one channel of a controller status report.
type ChannelStatus struct {
	On          bool     `json:"on"`
	Current     *float64 `json:"current,omitempty"`
	Fault       bool     `json:"fault,omitempty"`
	LockoutType string   `json:"lockout_type,omitempty"`
}

// ReportStatusOutput counts what a status report changed.
type ReportStatusOutput struct {
	DevicesUpdated int `json:"devices_updated"`
	AlertsRaised   int `json:"alerts_raised"`
}

// StatusUsecase ingests controller heartbeats.
type StatusUsecase interface {
	ReportStatus(ctx context.Context, controllerID string, channels map[string]ChannelStatus) (*ReportStatusOutput, error)
}
