package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"homeswitch/config"
	deliverycontext "homeswitch/internal/delivery/context"

	"github.com/labstack/echo/v4"
)

// LoggerMiddleware writes one access log record per request. Errors are always
// logged. Successful requests are logged only in debug mode, and controller
// polls, which arrive every few seconds per controller, drop to debug level.
type LoggerMiddleware struct {
	logger *slog.Logger
	debug  bool
}

func NewLoggerMiddleware(logger *slog.Logger, config *config.Config) *LoggerMiddleware {
	return &LoggerMiddleware{
		logger: logger,
		debug:  config.Env.Debug,
	}
}

func (m *LoggerMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			status = errorStatus(err)
		}

		level, ok := m.levelFor(c, status)
		if ok {
			m.logRequest(c, level, status, time.Since(start), err)
		}

		return err
	}
}

func (m *LoggerMiddleware) levelFor(c echo.Context, status int) (slog.Level, bool) {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError, true
	case status >= http.StatusBadRequest:
		return slog.LevelWarn, true
	case !m.debug || isProbe(c.Path()):
		return 0, false
	case c.Request().Method == http.MethodGet && c.Param(controllerIDParam) != "":
		return slog.LevelDebug, true
	default:
		return slog.LevelInfo, true
	}
}

func isProbe(path string) bool {
	return path == "/health" || path == "/metrics"
}

func (m *LoggerMiddleware) logRequest(c echo.Context, level slog.Level, status int, latency time.Duration, err error) {
	req := c.Request()
	logger := deliverycontext.GetLoggerOrDefault(req.Context(), m.logger)

	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("route", c.Path()),
		slog.String("uri", req.URL.Path),
		slog.Int("status", status),
		slog.Duration("latency", latency),
		slog.String("remote_ip", c.RealIP()),
	}
	if ua := req.UserAgent(); ua != "" && !strings.HasPrefix(ua, "Go-http-client") {
		attrs = append(attrs, slog.String("user_agent", ua))
	}
	if req.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", req.URL.RawQuery))
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}

	logger.LogAttrs(req.Context(), level, "HTTP request", attrs...)
}
