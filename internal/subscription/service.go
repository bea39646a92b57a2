// Package subscription implements the subscription lifecycle: token
// reservation, payload submission, nonce-based confirmation and the
// one-time notification trigger.
package subscription

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"push-subscription-backend/internal/apperr"
	"push-subscription-backend/internal/model"
	"push-subscription-backend/internal/store"
	"push-subscription-backend/internal/token"
)

// Dispatcher delivers a push notification for a subscription record.
type Dispatcher interface {
	Deliver(ctx context.Context, sub model.Subscription) error
}

// Service orchestrates all reads and writes of subscription records. It
// holds no mutable state of its own; every operation reads current state
// from the store and writes back.
type Service struct {
	store      store.Store
	dispatcher Dispatcher
	issuer     *token.Issuer
	logger     *log.Logger
}

// NewService creates the lifecycle service.
func NewService(s store.Store, d Dispatcher, issuer *token.Issuer, logger *log.Logger) *Service {
	return &Service{
		store:      s,
		dispatcher: d,
		issuer:     issuer,
		logger:     logger,
	}
}

// PushPayload is a browser push subscription as submitted by the client.
type PushPayload struct {
	Endpoint string            `json:"endpoint"`
	Keys     map[string]string `json:"keys"`
}

// Submission is the create/update request binding a push payload to a
// reserved subscription.
type Submission struct {
	SubID        string       `json:"sub_id"`
	Token        string       `json:"token"`
	Nonce        string       `json:"nonce"`
	Subscription *PushPayload `json:"subscription"`
}

// ConfirmRequest identifies a pending record for confirmation.
type ConfirmRequest struct {
	Token string `json:"token"`
	SubID string `json:"sub_id"`
	Nonce string `json:"nonce"`
}

// Reservation is returned by IssueToken. The token is the external-facing
// credential; the nonce pairs the upcoming confirmation to it.
type Reservation struct {
	SubID string `json:"sub_id"`
	Token string `json:"token"`
	Nonce string `json:"nonce"`
}

// PendingApproval is the narrow success shape of GetPendingApproval.
type PendingApproval struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}

// Overview is the projection returned by GetByToken. It never exposes the
// push endpoint or key material.
type Overview struct {
	ID        string                   `json:"id"`
	Status    model.SubscriptionStatus `json:"status"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// IssueToken generates a fresh API token and reserves a pending
// subscription record for it. A token collision is a Conflict; the random
// space makes this a defensive guard, not a retry loop.
func (s *Service) IssueToken(ctx context.Context) (Reservation, error) {
	tok, err := s.issuer.Token()
	if err != nil {
		return Reservation{}, apperr.Wrap(apperr.KindInternal, "unable to create token", err)
	}

	existing, err := s.store.FindByToken(ctx, tok, false)
	if err != nil {
		return Reservation{}, apperr.Wrap(apperr.KindInternal, "unable to create token", err)
	}
	if !existing.Empty() {
		return Reservation{}, apperr.New(apperr.KindConflict, "token already exists")
	}

	nonce, err := s.issuer.Nonce()
	if err != nil {
		return Reservation{}, apperr.Wrap(apperr.KindInternal, "unable to create token", err)
	}

	sub := model.Subscription{
		ID:     uuid.NewString(),
		Token:  tok,
		Nonce:  nonce,
		Status: model.StatusNew,
	}
	if err := s.store.Reserve(ctx, sub); err != nil {
		return Reservation{}, apperr.Wrap(apperr.KindInternal, "unable to create token", err)
	}

	s.logger.Printf("reserved subscription %s", sub.ID)
	return Reservation{SubID: sub.ID, Token: tok, Nonce: nonce}, nil
}

// Validate checks the structural validity of a submission. It never
// mutates state.
func (s *Service) Validate(sub Submission) error {
	if sub.Subscription == nil ||
		sub.Subscription.Endpoint == "" ||
		sub.Subscription.Keys == nil ||
		sub.SubID == "" ||
		sub.Nonce == "" ||
		sub.Token == "" {
		return apperr.New(apperr.KindInvalidInput, "invalid subscription object")
	}
	return nil
}

// CreateSubscription writes the browser push payload onto the pending
// record identified by sub_id and nonce. It updates the reservation in
// place and never creates a new row.
func (s *Service) CreateSubscription(ctx context.Context, sub Submission) error {
	if err := s.Validate(sub); err != nil {
		return err
	}

	res, err := s.store.FindPending(ctx, sub.SubID, sub.Nonce)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "unable to resolve subscription", err)
	}
	rec, ok := res.First()
	if !ok {
		return apperr.New(apperr.KindNotFound, "subscription not found")
	}
	// A token mismatch on an existing record resolves exactly like a
	// miss so callers cannot probe for record existence.
	if rec.Token != sub.Token {
		return apperr.New(apperr.KindNotFound, "subscription not found")
	}

	err = s.store.SavePayload(ctx, rec.ID,
		sub.Subscription.Endpoint,
		sub.Subscription.Keys["p256dh"],
		sub.Subscription.Keys["auth"])
	if err == store.ErrNoMatch {
		return apperr.New(apperr.KindNotFound, "subscription not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "unable to save subscription", err)
	}

	s.logger.Printf("saved push payload for subscription %s", rec.ID)
	return nil
}

// GetPendingApproval resolves a pending record by token, sub_id and nonce.
// The success shape is deliberately narrow: {id, valid} or not-found.
func (s *Service) GetPendingApproval(ctx context.Context, req ConfirmRequest) (PendingApproval, error) {
	if req.Token == "" || req.SubID == "" || req.Nonce == "" {
		return PendingApproval{}, apperr.New(apperr.KindBadRequest, "missing token, subscription id and nonce")
	}

	res, err := s.store.FindPending(ctx, req.SubID, req.Nonce)
	if err != nil {
		return PendingApproval{}, apperr.Wrap(apperr.KindInternal, "malformed query response", err)
	}
	rec, ok := res.First()
	if !ok {
		return PendingApproval{}, apperr.New(apperr.KindNotFound, "subscription not found")
	}
	if rec.Token != req.Token {
		return PendingApproval{}, apperr.New(apperr.KindNotFound, "subscription not found")
	}
	// A record that never received its push payload is not confirmable;
	// surfaced as the same not-found, not a distinct validation error.
	if !rec.HasPayload() {
		return PendingApproval{}, apperr.New(apperr.KindNotFound, "subscription not found")
	}

	return PendingApproval{ID: rec.ID, Valid: true}, nil
}

// ConfirmSubscription transitions a pending record new -> approved,
// rotating its nonce so the consumed confirmation request stops resolving.
// It returns a success flag only, never the record itself.
func (s *Service) ConfirmSubscription(ctx context.Context, req ConfirmRequest) (bool, error) {
	pending, err := s.GetPendingApproval(ctx, req)
	if err != nil {
		return false, err
	}
	if pending.ID == "" || !pending.Valid {
		return false, apperr.New(apperr.KindBadRequest, "invalid confirmation request")
	}

	newNonce, err := s.issuer.Nonce()
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "unable to confirm subscription", err)
	}

	err = s.store.Approve(ctx, pending.ID, req.Nonce, newNonce)
	if err == store.ErrNoMatch {
		return false, apperr.New(apperr.KindBadRequest, "invalid confirmation request")
	}
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "unable to confirm subscription", err)
	}

	s.logger.Printf("confirmed subscription %s", pending.ID)
	return true, nil
}

// GetByToken returns the approved subscription overview for a token.
// Records still in status "new" are invisible to this lookup.
func (s *Service) GetByToken(ctx context.Context, tok string) (Overview, error) {
	if tok == "" {
		return Overview{}, apperr.New(apperr.KindUnauthorized, "no token found")
	}

	res, err := s.store.FindByToken(ctx, tok, true)
	if err != nil {
		return Overview{}, apperr.Wrap(apperr.KindInternal, "unable to resolve subscription", err)
	}
	rec, ok := res.First()
	if !ok {
		return Overview{}, apperr.New(apperr.KindNotFound, "no subscription found for token")
	}

	return Overview{
		ID:        rec.ID,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// TriggerNotification dispatches the one-time push for an approved
// subscription. The notified latch is set only after a successful
// dispatch: a failed delivery can be retried by a later call, a
// successful one can never be retriggered.
func (s *Service) TriggerNotification(ctx context.Context, tok string) error {
	if tok == "" {
		return apperr.New(apperr.KindUnauthorized, "no token found")
	}

	res, err := s.store.FindByToken(ctx, tok, true)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "unable to resolve subscription", err)
	}
	rec, ok := res.First()
	if !ok {
		return apperr.New(apperr.KindNotFound, "no subscription found for token")
	}
	if rec.Notified {
		return apperr.New(apperr.KindConflict, "subscription token already notified")
	}
	// An approved record without an endpoint is data corruption, not a
	// caller error.
	if !rec.HasPayload() {
		return apperr.New(apperr.KindInternal, "malformed subscription record")
	}

	if err := s.dispatcher.Deliver(ctx, rec); err != nil {
		return apperr.Wrap(apperr.KindInternal, "push delivery failed", err)
	}

	err = s.store.MarkNotified(ctx, rec.ID)
	if err == store.ErrNoMatch {
		return apperr.New(apperr.KindConflict, "subscription token already notified")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "unable to record notification", err)
	}

	s.logger.Printf("notified subscription %s", rec.ID)
	return nil
}
