package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"homeswitch/config"
	deliverycontext "homeswitch/internal/delivery/context"
	"homeswitch/internal/domain/constants"
	"homeswitch/internal/domain/entity"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/infra/metrics"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// retryableError marks failures Pub/Sub should redeliver, such as a database
// outage while loading installations or FCM being unavailable.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return "retryable: " + e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func newRetryableError(err error) error {
	return &retryableError{err: err}
}

func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// PushHandler handles Pub/Sub push messages carrying accepted alerts
type PushHandler struct {
	verifyPushAuth bool
	logger         *slog.Logger
	pushTokenSvc   usecase.PushTokenUsecase
	notifier       service.PushNotifier
	pushTokenRepo  repository.PushTokenRepository
}

// PushHandlerParams holds dependencies for the PushHandler
type PushHandlerParams struct {
	fx.In

	Config        *config.Config
	Logger        *slog.Logger
	PushTokenSvc  usecase.PushTokenUsecase
	Notifier      service.PushNotifier
	PushTokenRepo repository.PushTokenRepository
}

// NewPushHandler creates a new Pub/Sub push handler
func NewPushHandler(params PushHandlerParams) *PushHandler {
	// Determine if we need to verify push auth based on config
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvDevelop

	return &PushHandler{
		verifyPushAuth: verifyPushAuth,
		logger:         params.Logger,
		pushTokenSvc:   params.PushTokenSvc,
		notifier:       params.Notifier,
		pushTokenRepo:  params.PushTokenRepo,
	}
}

// HandlePush handles incoming Pub/Sub push messages
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event service.AlertEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse alert event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := h.extractRequestID(ctx, &pushMsg, &event)
	reqLogger := h.logger.With(slog.String("request_id", requestID))

	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	reqLogger.Info("[Worker] Processing alert event",
		slog.String("alert_id", event.AlertID),
		slog.String("alert_type", event.AlertType),
		slog.String("device_id", event.DeviceID),
	)

	if err := h.processAlert(ctx, reqLogger, &event); err != nil {
		reqLogger.Error("[Worker] Failed to process alert",
			slog.String("alert_id", event.AlertID),
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		// 503 asks Pub/Sub to redeliver; anything else is acknowledged.
		if isRetryableError(err) {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		return c.NoContent(http.StatusOK)
	}

	return c.NoContent(http.StatusOK)
}

// extractRequestID extracts request_id from message attributes, event, or generates a new one
func (h *PushHandler) extractRequestID(ctx context.Context, pushMsg *PubSubMessage, event *service.AlertEvent) string {
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}

	if event.RequestID != "" {
		return event.RequestID
	}

	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

// processAlert sends the alert to every active installation of the device owner
func (h *PushHandler) processAlert(ctx context.Context, logger *slog.Logger, event *service.AlertEvent) error {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return errors.Wrap(err, "invalid user id")
	}

	tokens, err := h.pushTokenSvc.ActiveTokens(ctx, userID)
	if err != nil {
		return newRetryableError(errors.WithStack(err))
	}

	if len(tokens) == 0 {
		logger.Info("[Worker] No active push tokens for user",
			slog.String("alert_id", event.AlertID),
		)

		return nil
	}

	tokenMap := make(map[string]*entity.PushToken, len(tokens))
	fcmTokens := make([]string, 0, len(tokens))
	for _, token := range tokens {
		tokenMap[token.FCMToken] = token
		fcmTokens = append(fcmTokens, token.FCMToken)
	}

	report, err := h.notifier.Send(ctx, fcmTokens, alertMessage(event))
	if err != nil {
		return newRetryableError(err)
	}

	metrics.PushMessagesTotal.WithLabelValues(metrics.PushSent).Add(float64(report.Sent))
	metrics.PushMessagesTotal.WithLabelValues(metrics.PushFailed).Add(float64(report.Failed))
	metrics.PushMessagesTotal.WithLabelValues(metrics.PushRejected).Add(float64(len(report.Rejected)))

	h.cleanupInvalidTokens(ctx, logger, report.Rejected, tokenMap)

	logger.Info("[Worker] Alert push completed",
		slog.String("alert_id", event.AlertID),
		slog.Int("total_sent", report.Sent),
		slog.Int("total_failed", report.Failed),
		slog.Int("invalid_tokens", len(report.Rejected)),
	)

	return nil
}

// alertMessage renders the push notification for an alert event
func alertMessage(event *service.AlertEvent) *service.PushMessage {
	alertType := entity.AlertType(event.AlertType)
	title := event.Title
	if title == "" {
		title = alertType.Title()
	}

	return &service.PushMessage{
		Title: title,
		Body:  event.Message,
		Data: map[string]string{
			"alert_id":   event.AlertID,
			"alert_type": event.AlertType,
			"device_id":  event.DeviceID,
			"created_at": event.CreatedAt,
		},
		Urgent: alertType.Urgent(),
	}
}

// cleanupInvalidTokens deactivates installations whose FCM token was rejected
func (h *PushHandler) cleanupInvalidTokens(ctx context.Context, logger *slog.Logger, invalidTokens []string, tokenMap map[string]*entity.PushToken) {
	for _, fcmToken := range invalidTokens {
		token, ok := tokenMap[fcmToken]
		if !ok {
			continue
		}

		if err := h.pushTokenRepo.DeletePushToken(ctx, token.ID); err != nil {
			logger.Warn("[Worker] Failed to deactivate invalid push token",
				slog.String("push_token_id", token.ID.String()),
				slog.Any("error", err),
			)
		}
	}
}

// verifyPubSubToken checks the OIDC token Google attaches to authenticated push
// subscriptions. The audience is the push endpoint URL.
func verifyPubSubToken(req *http.Request) error {
	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return errors.New("missing bearer token")
	}

	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := idtoken.Validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return errors.New("service account email not verified")
	}

	return nil
}
