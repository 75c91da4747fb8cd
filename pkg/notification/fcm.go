// Package notification sends availability pushes through Firebase Cloud
// Messaging.
package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"

	"github.com/mireiacv/citalert/internal/model"
)

const notificationTitle = "New appointments available"

// Dispatcher sends one multicast push per service to a batch of device
// tokens and reports a per-token delivery outcome.
type Dispatcher struct {
	client     *messaging.Client
	portalLink string
	iconURL    string
}

// NewDispatcher wraps an FCM messaging client. The portal link is where a
// tapped notification sends the user; the icon shows in web push UIs.
func NewDispatcher(client *messaging.Client, portalLink, iconURL string) *Dispatcher {
	return &Dispatcher{
		client:     client,
		portalLink: portalLink,
		iconURL:    iconURL,
	}
}

// Send multicasts one availability notification to every token. On success
// the returned slice has exactly one outcome per token, in token order, so
// callers can zip outcomes back to their subscriptions. If the provider call
// itself fails no outcomes are returned and the caller must not reconcile
// this batch.
func (d *Dispatcher) Send(ctx context.Context, serviceName string, tokens []string) ([]model.DeliveryOutcome, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	resp, err := d.client.SendEachForMulticast(ctx, d.serviceMessage(serviceName, tokens))
	if err != nil {
		return nil, fmt.Errorf("sending multicast for service %q: %w", serviceName, err)
	}

	outcomes := make([]model.DeliveryOutcome, len(resp.Responses))
	for i, r := range resp.Responses {
		outcomes[i] = classify(r)
	}
	return outcomes, nil
}

// serviceMessage builds the multicast payload for one service.
func (d *Dispatcher) serviceMessage(serviceName string, tokens []string) *messaging.MulticastMessage {
	body := fmt.Sprintf("Check appointments for %s", serviceName)

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notificationTitle,
			Body:  body,
		},
		Webpush: &messaging.WebpushConfig{
			Headers: map[string]string{
				"Urgency": "high",
			},
			Notification: &messaging.WebpushNotification{
				Title: notificationTitle,
				Body:  body,
				Icon:  d.iconURL,
			},
			FCMOptions: &messaging.WebpushFCMOptions{
				Link: d.portalLink,
			},
		},
	}
}

// classify maps one token's send response onto the delivery outcome the
// reconciler consumes. Unregistered and invalid tokens are permanent; every
// other error, rate limiting included, is retryable.
func classify(resp *messaging.SendResponse) model.DeliveryOutcome {
	if resp.Success {
		return model.OutcomeDelivered
	}
	switch {
	case messaging.IsUnregistered(resp.Error):
		return model.OutcomeNotRegistered
	case errorutils.IsInvalidArgument(resp.Error):
		return model.OutcomeInvalidToken
	default:
		return model.OutcomeOtherError
	}
}
