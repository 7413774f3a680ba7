package errors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// DetailedError is implemented by errors that carry structured details for 4xx responses.
type DetailedError interface {
	DetailData() any
}

// Kind classifies domain failures independently of the transport.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindNotConnected
	KindConflict
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNotConnected:
		return "not_connected"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	kind      Kind
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(kind Kind, httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		kind:      kind,
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.details != "" {
		return e.message + ": " + e.details
	}

	return e.message
}

// Is matches any BaseError sharing the same error code, so detailed copies
// still compare equal to the catalogue value.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return t.errorCode == e.errorCode
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// Kind returns the domain error kind
func (e *BaseError) Kind() Kind {
	return e.kind
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		kind:      e.kind,
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// WithDetailsf is WithDetails with a format string
func (e *BaseError) WithDetailsf(format string, args ...any) *BaseError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// Predefined error types
var (
	// Identity
	ErrUserNotFound = NewBaseError(
		KindNotFound,
		http.StatusNotFound,
		"USER_NOT_FOUND",
		"User not found",
		"",
	)

	ErrRoomNotFound = NewBaseError(
		KindNotFound,
		http.StatusNotFound,
		"ROOM_NOT_FOUND",
		"Room not found",
		"",
	)

	ErrRoomAlreadyExists = NewBaseError(
		KindConflict,
		http.StatusConflict,
		"ROOM_ALREADY_EXISTS",
		"A room with this name already exists",
		"",
	)

	ErrControllerNotRegistered = NewBaseError(
		KindNotFound,
		http.StatusNotFound,
		"CONTROLLER_NOT_REGISTERED",
		"Controller is not registered",
		"",
	)

	ErrDeviceNotFound = NewBaseError(
		KindNotFound,
		http.StatusNotFound,
		"DEVICE_NOT_FOUND",
		"Device not found",
		"",
	)

	ErrInvalidPairingCode = NewBaseError(
		KindNotFound,
		http.StatusNotFound,
		"INVALID_PAIRING_CODE",
		"Device not found or pairing code does not match",
		"",
	)

	ErrDeviceAlreadyPaired = NewBaseError(
		KindConflict,
		http.StatusConflict,
		"DEVICE_ALREADY_PAIRED",
		"Device is already paired",
		"",
	)

	ErrRoomOwnership = NewBaseError(
		KindInvalidInput,
		http.StatusBadRequest,
		"ROOM_OWNERSHIP_MISMATCH",
		"Room does not belong to this user",
		"",
	)

	ErrInvalidQRCode = NewBaseError(
		KindInvalidInput,
		http.StatusBadRequest,
		"INVALID_QR_CODE",
		"Pairing QR code could not be read",
		"",
	)

	// Command queue
	ErrDeviceNotConnected = NewBaseError(
		KindNotConnected,
		http.StatusConflict,
		"DEVICE_NOT_CONNECTED",
		"Device is not paired or has no controller",
		"",
	)

	ErrNoControllerForUser = NewBaseError(
		KindNotConnected,
		http.StatusConflict,
		"NO_CONTROLLER",
		"No controller is linked to this account",
		"",
	)

	ErrCommandNotFound = NewBaseError(
		KindNotFound,
		http.StatusNotFound,
		"COMMAND_NOT_FOUND",
		"Command not found",
		"",
	)

	ErrCommandInProgress = NewBaseError(
		KindConflict,
		http.StatusConflict,
		"COMMAND_IN_PROGRESS",
		"Another command is still in progress for this device",
		"",
	)

	// Alerts
	ErrAlertNotFound = NewBaseError(
		KindNotFound,
		http.StatusNotFound,
		"ALERT_NOT_FOUND",
		"Alert not found",
		"",
	)

	// Push tokens
	ErrPushTokenNotFound = NewBaseError(
		KindNotFound,
		http.StatusNotFound,
		"PUSH_TOKEN_NOT_FOUND",
		"Push token not found",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		KindInvalidInput,
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	// Transaction-related errors
	ErrTransactionFailed = NewBaseError(
		KindInternal,
		http.StatusInternalServerError,
		"TRANSACTION_FAILED",
		"Database transaction failed",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		KindInternal,
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)
)

// CommandConflictError reports the command currently blocking a submission.
type CommandConflictError struct {
	*BaseError
	CommandID     string
	Status        string
	TimeRemaining int
}

// NewCommandConflictError creates a conflict error for the outstanding command.
func NewCommandConflictError(commandID, status string, timeRemaining int) *CommandConflictError {
	return &CommandConflictError{
		BaseError:     ErrCommandInProgress.WithDetailsf("command %s is %s, %ds remaining", commandID, status, timeRemaining),
		CommandID:     commandID,
		Status:        status,
		TimeRemaining: timeRemaining,
	}
}

// Unwrap exposes the catalogue error for errors.Is checks.
func (e *CommandConflictError) Unwrap() error {
	return e.BaseError
}

// DetailData returns the outstanding command for the response body.
func (e *CommandConflictError) DetailData() any {
	return map[string]any{
		"command_id":     e.CommandID,
		"status":         e.Status,
		"time_remaining": e.TimeRemaining,
	}
}

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// Unwrap returns the driver error
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}

// KindOf reports the domain kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var base *BaseError
	if errors.As(err, &base) {
		return base.Kind()
	}

	return KindInternal
}
