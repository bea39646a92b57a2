package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"push-subscription-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Dispatcher delivers a push payload to a subscription's endpoint. One
// attempt per call: no retry, no backoff, no batching.
type Dispatcher struct {
	options *webpush.Options
	payload []byte
	sender  Sender
	logger  *log.Logger
}

// NewDispatcher creates a Dispatcher with the real web-push sender.
func NewDispatcher(options *webpush.Options, payload string, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		options: options,
		payload: []byte(payload),
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// SetSender swaps the underlying sender; used by tests.
func (d *Dispatcher) SetSender(s Sender) {
	d.sender = s
}

// Deliver pushes the configured payload to the subscription's endpoint.
// Any transport error or non-2xx response from the push service is a
// delivery failure.
func (d *Dispatcher) Deliver(ctx context.Context, sub model.Subscription) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := d.sender.Send(d.payload, wpSub, d.options)
	if err != nil {
		return fmt.Errorf("push delivery to %s failed: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push service rejected delivery to %s: status %d", sub.Endpoint, resp.StatusCode)
	}

	d.logger.Printf("delivered push notification for subscription %s", sub.ID)
	return nil
}
