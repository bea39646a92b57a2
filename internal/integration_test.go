package internal

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"push-subscription-backend/internal/api"
	"push-subscription-backend/internal/model"
	"push-subscription-backend/internal/notification"
	"push-subscription-backend/internal/store"
	"push-subscription-backend/internal/subscription"
	"push-subscription-backend/internal/token"
)

// recordingSender captures every web-push delivery the dispatcher attempts.
type recordingSender struct {
	endpoints []string
	err       error
}

func (r *recordingSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	r.endpoints = append(r.endpoints, sub.Endpoint)
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: http.StatusCreated,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}, nil
}

type env struct {
	router *gin.Engine
	sender *recordingSender
	db     *gorm.DB
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Subscription{}))

	logger := log.New(io.Discard, "", 0)
	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  "test-public",
		VAPIDPrivateKey: "test-private",
		Subscriber:      "mailto:noreply@example.com",
	}

	sender := &recordingSender{}
	dispatcher := notification.NewDispatcher(webpushOptions, `{"title":"hello"}`, logger)
	dispatcher.SetSender(sender)

	service := subscription.NewService(store.NewGormStore(db), dispatcher, token.NewIssuer(0), logger)
	router := api.NewRouter(service, webpushOptions, api.RouterConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTL:        time.Minute,
	})

	return &env{router: router, sender: sender, db: db}
}

func (e *env) do(t *testing.T, method, path, body, authToken string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		req.Header.Set("Authorization", authToken)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) issueToken(t *testing.T) subscription.Reservation {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/tokens", "", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data subscription.Reservation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func (e *env) createAndConfirm(t *testing.T, r subscription.Reservation) {
	t.Helper()

	submission, err := json.Marshal(map[string]any{
		"sub_id": r.SubID,
		"token":  r.Token,
		"nonce":  r.Nonce,
		"subscription": map[string]any{
			"endpoint": "https://push.example/abc",
			"keys":     map[string]string{"p256dh": "x", "auth": "y"},
		},
	})
	require.NoError(t, err)

	w := e.do(t, http.MethodPut, "/api/subscriptions", string(submission), "")
	require.Equal(t, http.StatusCreated, w.Code)

	confirm, err := json.Marshal(map[string]string{
		"token":  r.Token,
		"sub_id": r.SubID,
		"nonce":  r.Nonce,
	})
	require.NoError(t, err)

	w = e.do(t, http.MethodPost, "/api/subscriptions/confirm", string(confirm), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"success":true}}`, w.Body.String())
}

// TestSubscriptionLifecycle walks a record through reservation, payload
// submission, confirmation and the one-time notification trigger.
func TestSubscriptionLifecycle(t *testing.T) {
	e := newEnv(t)

	reservation := e.issueToken(t)

	// The pending record resolves once the payload has landed.
	pendingReq, _ := json.Marshal(map[string]string{
		"token":  reservation.Token,
		"sub_id": reservation.SubID,
		"nonce":  reservation.Nonce,
	})

	e.createAndConfirm(t, reservation)

	// The overview projection shows the approved record without key
	// material.
	w := e.do(t, http.MethodGet, "/api/subscriptions", "", reservation.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var overview struct {
		Data subscription.Overview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	assert.Equal(t, reservation.SubID, overview.Data.ID)
	assert.Equal(t, model.StatusApproved, overview.Data.Status)

	// The consumed nonce no longer resolves a pending record.
	w = e.do(t, http.MethodPost, "/api/subscriptions/pending", string(pendingReq), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Trigger dispatches exactly one push to the stored endpoint.
	w = e.do(t, http.MethodPost, "/api/notifications", "", reservation.Token)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, []string{"https://push.example/abc"}, e.sender.endpoints)

	var rec model.Subscription
	require.NoError(t, e.db.First(&rec, "id = ?", reservation.SubID).Error)
	assert.True(t, rec.Notified)

	// Retriggering an already-notified record is a conflict, with no
	// further delivery attempt.
	w = e.do(t, http.MethodPost, "/api/notifications", "", reservation.Token)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, e.sender.endpoints, 1)
}

// TestTriggerBeforeConfirmation verifies a reserved-but-unconfirmed token
// cannot be triggered.
func TestTriggerBeforeConfirmation(t *testing.T) {
	e := newEnv(t)

	reservation := e.issueToken(t)

	w := e.do(t, http.MethodPost, "/api/notifications", "", reservation.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, e.sender.endpoints)
}

// TestDeliveryFailureLeavesLatchUnset verifies a failed dispatch does not
// consume the one-shot notification.
func TestDeliveryFailureLeavesLatchUnset(t *testing.T) {
	e := newEnv(t)

	reservation := e.issueToken(t)
	e.createAndConfirm(t, reservation)

	e.sender.err = io.ErrUnexpectedEOF
	w := e.do(t, http.MethodPost, "/api/notifications", "", reservation.Token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var rec model.Subscription
	require.NoError(t, e.db.First(&rec, "id = ?", reservation.SubID).Error)
	assert.False(t, rec.Notified)

	// The failed delivery can be retried.
	e.sender.err = nil
	w = e.do(t, http.MethodPost, "/api/notifications", "", reservation.Token)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, e.sender.endpoints, 2)
}
