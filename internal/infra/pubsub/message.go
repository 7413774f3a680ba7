package pubsub

import (
	"encoding/json"

	"homeswitch/internal/domain/service"

	"github.com/pkg/errors"
)

// alertMessage is the wire form shared by every publisher. Attributes let
// subscriptions filter by alert type without decoding the body.
func alertMessage(event *service.AlertEvent) (data []byte, attributes map[string]string, err error) {
	data, err = json.Marshal(event)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	attributes = map[string]string{
		"alert_id":   event.AlertID,
		"user_id":    event.UserID,
		"device_id":  event.DeviceID,
		"alert_type": event.AlertType,
	}
	if event.RequestID != "" {
		attributes["request_id"] = event.RequestID
	}
	if event.ReportedBy != "" {
		attributes["reported_by"] = event.ReportedBy
	}

	return data, attributes, nil
}
