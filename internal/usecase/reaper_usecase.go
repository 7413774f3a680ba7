package usecase

import "context"

// SweepResult summarizes one periodic sweep.
type SweepResult struct {
	CommandsReaped     int
	ControllersOffline int
	AlertsRaised       int
}

// ReaperUsecase fails commands that were never confirmed within the command timeout.
type ReaperUsecase interface {
	// ReapController fails the stale commands of one controller and returns how many were reaped.
	ReapController(ctx context.Context, controllerID string) (int, error)
	// SweepAll reaps every controller and marks silent controllers offline.
	SweepAll(ctx context.Context) (*SweepResult, error)
}
