package middleware

import (
	"log/slog"

	deliverycontext "homeswitch/internal/delivery/context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// controllerIDParam is the route parameter naming the calling field controller.
const controllerIDParam = "controllerId"

// RequestScopeMiddleware assigns each request an ID and a logger tagged with it.
// Requests from field controllers are also tagged with the controller ID so
// poll and status traffic can be traced per controller.
type RequestScopeMiddleware struct {
	logger *slog.Logger
}

func NewRequestScopeMiddleware(logger *slog.Logger) *RequestScopeMiddleware {
	return &RequestScopeMiddleware{
		logger: logger,
	}
}

func (m *RequestScopeMiddleware) Process(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		requestID := req.Header.Get(deliverycontext.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		deliverycontext.SetRequestID(c, requestID)
		c.Response().Header().Set(deliverycontext.HeaderXRequestID, requestID)

		reqLogger := m.logger.With(slog.String("request_id", requestID))
		ctx := deliverycontext.WithRequestID(req.Context(), requestID)

		if controllerID := controllerIDOf(c); controllerID != "" {
			reqLogger = reqLogger.With(slog.String("controller_id", controllerID))
			ctx = deliverycontext.WithControllerID(ctx, controllerID)
		}

		ctx = deliverycontext.WithLogger(ctx, reqLogger)
		c.SetRequest(req.WithContext(ctx))

		return next(c)
	}
}

// controllerIDOf prefers the route parameter over the header.
func controllerIDOf(c echo.Context) string {
	if id := c.Param(controllerIDParam); id != "" {
		return id
	}

	return c.Request().Header.Get(deliverycontext.HeaderXControllerID)
}
