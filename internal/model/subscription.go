package model

import "time"

// SubscriptionStatus is the lifecycle status of a subscription record.
type SubscriptionStatus string

const (
	StatusNew      SubscriptionStatus = "new"
	StatusApproved SubscriptionStatus = "approved"
)

// Subscription holds one reserved or confirmed push subscription, one row
// per issued API token.
type Subscription struct {
	ID     string             `gorm:"primaryKey;size:36" json:"id"`
	Token  string             `gorm:"uniqueIndex;index:idx_token_status,priority:1;not null" json:"-"`
	Nonce  string             `gorm:"not null" json:"-"`
	Status SubscriptionStatus `gorm:"index:idx_token_status,priority:2;not null;default:new" json:"status"`

	// Push subscription payload, absent until the client completes the
	// create/update step.
	Endpoint string `json:"endpoint,omitempty"`
	P256DH   string `gorm:"column:p256dh" json:"-"`
	Auth     string `json:"-"`

	// Notified latches to true after the first successful push dispatch.
	Notified bool `gorm:"not null;default:false" json:"notified"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// HasPayload reports whether the client has submitted its browser push
// subscription for this record.
func (s *Subscription) HasPayload() bool {
	return s.Endpoint != ""
}
