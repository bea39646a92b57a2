package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-subscription-backend/internal/model"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func pushResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func newTestDispatcher(sender Sender) *Dispatcher {
	d := NewDispatcher(&webpush.Options{}, `{"title":"hello"}`, log.New(io.Discard, "", 0))
	d.SetSender(sender)
	return d
}

func TestDispatcher_Deliver(t *testing.T) {
	sub := model.Subscription{
		ID:       "sub-1",
		Endpoint: "https://push.example/abc",
		P256DH:   "p256dh-key",
		Auth:     "auth-key",
	}

	var sent int
	d := newTestDispatcher(&mockSender{
		SendFunc: func(payload []byte, wpSub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			sent++
			assert.Equal(t, "https://push.example/abc", wpSub.Endpoint)
			assert.Equal(t, "p256dh-key", wpSub.Keys.P256dh)
			assert.Equal(t, "auth-key", wpSub.Keys.Auth)
			assert.Equal(t, `{"title":"hello"}`, string(payload))
			return pushResponse(http.StatusCreated), nil
		},
	})

	require.NoError(t, d.Deliver(context.Background(), sub))
	assert.Equal(t, 1, sent)
}

func TestDispatcher_DeliverSenderError(t *testing.T) {
	d := newTestDispatcher(&mockSender{
		SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	})

	err := d.Deliver(context.Background(), model.Subscription{Endpoint: "https://push.example/abc"})
	assert.Error(t, err)
}

func TestDispatcher_DeliverRejectedByPushService(t *testing.T) {
	testCases := []int{http.StatusBadRequest, http.StatusGone, http.StatusInternalServerError}

	for _, status := range testCases {
		d := newTestDispatcher(&mockSender{
			SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
				return pushResponse(status), nil
			},
		})

		err := d.Deliver(context.Background(), model.Subscription{Endpoint: "https://push.example/abc"})
		assert.Error(t, err, "status %d must be a delivery failure", status)
	}
}
