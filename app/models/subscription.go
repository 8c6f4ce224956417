package models

import "time"

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusExpired    = "expired"
	SubscriptionStatusPaused     = "paused"
	SubscriptionStatusUnpaid     = "unpaid"
	SubscriptionStatusOnTrial    = "on_trial"
	SubscriptionStatusCancelled  = "cancelled"
	SubscriptionStatusIncomplete = "incomplete"
)

// Subscription mirrors the billing provider's subscription state. The ID is
// the provider subscription id, so redelivered events upsert the same row.
type Subscription struct {
	ID                 string     `gorm:"primaryKey;type:varchar(191)" json:"id"`
	UserID             string     `gorm:"type:varchar(191);not null;index" json:"userId"`
	ProviderCustomerID string     `gorm:"type:varchar(191);default:''" json:"providerCustomerId"`
	Status             string     `gorm:"type:varchar(32);not null;default:'';index" json:"status"`
	CurrentPeriodEnd   *time.Time `gorm:"default:null" json:"currentPeriodEnd"`
	Plan               string     `gorm:"type:varchar(191);default:''" json:"plan"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}
