// Package context carries request-scoped values between delivery and usecase layers.
package context

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	KeyRequestID    ContextKey = "request_id"
	KeyLogger       ContextKey = "logger"
	KeyControllerID ContextKey = "controller_id"

	HeaderXRequestID    = "X-Request-Id"
	HeaderXControllerID = "X-Controller-Id"
)

// GetRequestID returns the request ID stored on c, or a fresh UUID when the
// request never passed the scope middleware.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(string(KeyRequestID)).(string); ok && id != "" {
		return id
	}

	return uuid.New().String()
}

func SetRequestID(c echo.Context, requestID string) {
	c.Set(string(KeyRequestID), requestID)
}

func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(KeyRequestID).(string)

	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// GetControllerIDFromContext returns the field controller that issued the request, if any.
func GetControllerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(KeyControllerID).(string)

	return id
}

func WithControllerID(ctx context.Context, controllerID string) context.Context {
	return context.WithValue(ctx, KeyControllerID, controllerID)
}

// GetLoggerOrDefault returns the request-scoped logger, falling back when none was attached.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return fallback
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, KeyLogger, logger)
}
