package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	InvoiceTypeTopup        = "topup"
	InvoiceTypeSubscription = "subscription"
)

// Invoice records a credit grant coming from the billing provider. The
// primary key is derived from the provider's order/invoice id and is what
// makes webhook redelivery idempotent.
type Invoice struct {
	ID                string         `gorm:"primaryKey;type:varchar(191)" json:"id"`
	UserID            string         `gorm:"type:varchar(191);not null;index" json:"userId"`
	ProviderInvoiceID string         `gorm:"type:varchar(191);default:''" json:"providerInvoiceId"`
	AmountCents       int64          `gorm:"not null;default:0" json:"amountCents"`
	Currency          string         `gorm:"type:varchar(8);default:'USD'" json:"currency"`
	Type              string         `gorm:"type:varchar(20);not null" json:"type"`
	Meta              datatypes.JSON `json:"meta"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}
