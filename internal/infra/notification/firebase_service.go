package notification

import (
	"context"
	"time"

	"homeswitch/internal/domain/service"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

const (
	// multicastLimit is the FCM cap on tokens per multicast request.
	multicastLimit = 500

	alertChannelID = "device_alerts"
	alertTTL       = time.Hour
)

type firebaseNotifier struct {
	client *messaging.Client
}

// NewFirebaseNotifier creates a push notifier backed by Firebase Cloud Messaging.
func NewFirebaseNotifier(ctx context.Context, credentialsPath string) (service.PushNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Firebase app")
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get messaging client")
	}

	return &firebaseNotifier{client: client}, nil
}

// Send splits tokens into multicast batches. A failed batch counts every token as failed
// and does not stop the remaining batches.
func (n *firebaseNotifier) Send(ctx context.Context, tokens []string, msg *service.PushMessage) (*service.PushReport, error) {
	report := &service.PushReport{}
	if len(tokens) == 0 {
		return report, nil
	}

	var lastErr error
	for start := 0; start < len(tokens); start += multicastLimit {
		batch := tokens[start:min(start+multicastLimit, len(tokens))]

		resp, err := n.client.SendEachForMulticast(ctx, multicast(batch, msg))
		if err != nil {
			report.Failed += len(batch)
			lastErr = errors.Wrap(err, "failed to send multicast notification")

			continue
		}

		report.Sent += resp.SuccessCount
		report.Failed += resp.FailureCount
		for idx, sendResp := range resp.Responses {
			if sendResp.Error != nil && (messaging.IsInvalidArgument(sendResp.Error) || messaging.IsUnregistered(sendResp.Error)) {
				report.Rejected = append(report.Rejected, batch[idx])
			}
		}
	}

	if report.Sent == 0 && lastErr != nil {
		return report, lastErr
	}

	return report, nil
}

func multicast(tokens []string, msg *service.PushMessage) *messaging.MulticastMessage {
	ttl := alertTTL
	androidPriority := "normal"
	apnsPriority := "5"
	sound := "default"
	if msg.Urgent {
		androidPriority = "high"
		apnsPriority = "10"
		sound = "alarm.caf"
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			TTL:      &ttl,
			Notification: &messaging.AndroidNotification{
				ChannelID: alertChannelID,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": apnsPriority},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: sound},
			},
		},
	}
}
