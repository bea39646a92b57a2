package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"push-subscription-backend/internal/model"
)

// ErrNoMatch is returned by conditional updates that matched zero rows,
// meaning the record was not in the expected state.
var ErrNoMatch = errors.New("no record matched the expected state")

// Store defines the key-value contract the subscription lifecycle runs
// against: put, two secondary lookup paths, and narrow conditional updates.
type Store interface {
	// Reserve inserts a freshly issued reservation row.
	Reserve(ctx context.Context, sub model.Subscription) error

	// FindByToken queries the token index, newest record first. With
	// approvedOnly set, records whose status is not "approved" are
	// invisible to the query.
	FindByToken(ctx context.Context, token string, approvedOnly bool) (Result, error)

	// FindPending resolves a pending record by id, nonce and
	// status = "new". A nonce rotated away by a prior confirmation no
	// longer matches.
	FindPending(ctx context.Context, id, nonce string) (Result, error)

	// SavePayload writes the push subscription payload onto an existing
	// record. It never creates a row; ErrNoMatch if id does not exist.
	SavePayload(ctx context.Context, id, endpoint, p256dh, auth string) error

	// Approve transitions status new -> approved, rotating the nonce so
	// stale confirmation requests stop resolving. Conditional on the
	// record still holding the given nonce in status "new"; ErrNoMatch
	// otherwise.
	Approve(ctx context.Context, id, nonce, newNonce string) error

	// MarkNotified latches notified to true. Conditional on the latch
	// being unset; ErrNoMatch if the record is missing or already
	// notified.
	MarkNotified(ctx context.Context, id string) error
}

// gormStore implements Store on a GORM-backed SQL database.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Reserve(ctx context.Context, sub model.Subscription) error {
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return fmt.Errorf("failed to reserve subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (s *gormStore) FindByToken(ctx context.Context, token string, approvedOnly bool) (Result, error) {
	q := s.db.WithContext(ctx).Where("token = ?", token)
	if approvedOnly {
		q = q.Where("status = ?", model.StatusApproved)
	}

	var records []model.Subscription
	if err := q.Order("created_at DESC").Find(&records).Error; err != nil {
		return Result{}, fmt.Errorf("token lookup failed: %w", err)
	}
	return resultOf(records), nil
}

func (s *gormStore) FindPending(ctx context.Context, id, nonce string) (Result, error) {
	var records []model.Subscription
	err := s.db.WithContext(ctx).
		Where("id = ? AND nonce = ? AND status = ?", id, nonce, model.StatusNew).
		Find(&records).Error
	if err != nil {
		return Result{}, fmt.Errorf("pending lookup failed: %w", err)
	}
	return resultOf(records), nil
}

func (s *gormStore) SavePayload(ctx context.Context, id, endpoint, p256dh, auth string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"endpoint": endpoint,
			"p256dh":   p256dh,
			"auth":     auth,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save payload for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoMatch
	}
	return nil
}

func (s *gormStore) Approve(ctx context.Context, id, nonce, newNonce string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ? AND nonce = ? AND status = ?", id, nonce, model.StatusNew).
		Updates(map[string]any{
			"status": model.StatusApproved,
			"nonce":  newNonce,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to approve subscription %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoMatch
	}
	return nil
}

func (s *gormStore) MarkNotified(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ? AND notified = ?", id, false).
		Update("notified", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark subscription %s notified: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoMatch
	}
	return nil
}
