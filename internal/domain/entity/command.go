package entity

import (
	"time"

	"github.com/google/uuid"
)

// CommandStatus is a state in the command lifecycle:
// pending -> executing -> completed|failed. Terminal states are final.
type CommandStatus string

const (
	CommandPending   CommandStatus = "pending"
	CommandExecuting CommandStatus = "executing"
	CommandCompleted CommandStatus = "completed"
	CommandFailed    CommandStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s CommandStatus) IsTerminal() bool {
	return s == CommandCompleted || s == CommandFailed
}

// NonTerminalCommandStatuses lists the states that still count as outstanding.
func NonTerminalCommandStatuses() []CommandStatus {
	return []CommandStatus{CommandPending, CommandExecuting}
}

// Well-known actions. Anything else is passed to the controller verbatim.
const (
	ActionOn        = "on"
	ActionOff       = "off"
	ActionTestAlert = "test_alert"
)

// CommandTimeoutError is recorded on commands invalidated by the reaper.
const CommandTimeoutError = "timeout"

// Command is one instruction for a controller. DeviceID is nil for
// system-targeted commands such as a test alert.
type Command struct {
	ID           uuid.UUID     `json:"id"`
	DeviceID     *uuid.UUID    `json:"device_id,omitempty"`
	ControllerID uuid.UUID     `json:"controller_id"`
	Action       string        `json:"action"`
	Status       CommandStatus `json:"status"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ExecutedAt   *time.Time    `json:"executed_at,omitempty"`
}

// Age returns how long the command has existed at now.
func (c *Command) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

// IsStale reports whether a non-terminal command has outlived timeout.
func (c *Command) IsStale(now time.Time, timeout time.Duration) bool {
	return !c.Status.IsTerminal() && c.Age(now) >= timeout
}

// TimeRemaining returns whole seconds left before the command times out, never negative.
func (c *Command) TimeRemaining(now time.Time, timeout time.Duration) int {
	left := timeout - c.Age(now)
	if left <= 0 {
		return 0
	}

	return int((left + time.Second - 1) / time.Second)
}

// Finish moves the command to a terminal state.
func (c *Command) Finish(success bool, errMsg string, now time.Time) {
	if success {
		c.Status = CommandCompleted
		c.Error = ""
	} else {
		c.Status = CommandFailed
		c.Error = errMsg
	}
	c.ExecutedAt = &now
}

// TargetStatus returns the device status implied by the action, if any.
func (c *Command) TargetStatus() (DeviceStatus, bool) {
	switch c.Action {
	case ActionOn:
		return DeviceOn, true
	case ActionOff:
		return DeviceOff, true
	}

	return "", false
}

// IssuedCommand is what a polling controller receives.
type IssuedCommand struct {
	CommandID uuid.UUID `json:"command_id"`
	Channel   string    `json:"channel"` // Empty for system-targeted commands.
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}
