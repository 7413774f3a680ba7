package pubsub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"homeswitch/internal/domain/service"

	"github.com/pkg/errors"
)

const (
	localMaxAttempts  = 3
	localRetryBackoff = 200 * time.Millisecond
	localSubscription = "projects/local/subscriptions/alert-push-sub"
)

// localHTTPPublisher posts Pub/Sub shaped push requests straight to the alert
// worker for development. A 503 from the worker is retried the way Pub/Sub
// redelivers, any other non-2xx status is final.
type localHTTPPublisher struct {
	endpoint   string
	httpClient *http.Client
	backoff    time.Duration
	logger     *slog.Logger
}

type pushEnvelope struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func NewLocalHTTPPublisher(endpoint string, logger *slog.Logger) service.EventPublisher {
	return &localHTTPPublisher{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		backoff:    localRetryBackoff,
		logger:     logger,
	}
}

func (p *localHTTPPublisher) PublishAlertEvent(ctx context.Context, event *service.AlertEvent) error {
	data, attributes, err := alertMessage(event)
	if err != nil {
		return err
	}

	envelope := pushEnvelope{Subscription: localSubscription}
	envelope.Message.Data = base64.StdEncoding.EncodeToString(data)
	envelope.Message.Attributes = attributes
	envelope.Message.MessageID = event.AlertID
	envelope.Message.PublishTime = time.Now().UTC().Format(time.RFC3339)

	body, err := json.Marshal(envelope)
	if err != nil {
		return errors.WithStack(err)
	}

	for attempt := 1; ; attempt++ {
		status, err := p.post(ctx, body, event.RequestID)
		switch {
		case err != nil:
			return err
		case status >= 200 && status < 300:
			return nil
		case status != http.StatusServiceUnavailable || attempt == localMaxAttempts:
			return errors.Errorf("worker returned status %d for alert %s", status, event.AlertID)
		}

		p.logger.Warn("[LocalPubSub] Worker asked for redelivery",
			slog.String("alert_id", event.AlertID),
			slog.Int("attempt", attempt),
		)

		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-time.After(p.backoff * time.Duration(attempt)):
		}
	}
}

func (p *localHTTPPublisher) post(ctx context.Context, body []byte, requestID string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func (p *localHTTPPublisher) Close() error {
	return nil
}
