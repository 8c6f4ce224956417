package billing

import "time"

// NormalizedSubscription is the provider-agnostic shape used when syncing
// external subscription state into the local table.
type NormalizedSubscription struct {
	ID                 string
	UserID             string
	ProviderCustomerID string
	Status             string
	CurrentPeriodEnd   *time.Time
	Plan               string
}

// CreditGrant is one invoice-backed credit increment.
type CreditGrant struct {
	InvoiceID         string
	UserID            string
	ProviderInvoiceID string
	AmountCents       int64
	Currency          string
	Type              string
	Credits           int
	RawPayload        []byte
}

// Outcome is the result of handling one webhook delivery.
type Outcome struct {
	Status  int
	Body    string
	Event   string
	Granted int
	// Duplicate is set when the grant's invoice already existed.
	Duplicate bool
	Err       error
}

// CheckoutKind selects the product a checkout is created for.
type CheckoutKind string

const (
	CheckoutTopupSmall   CheckoutKind = "topup_small"
	CheckoutTopupLarge   CheckoutKind = "topup_large"
	CheckoutSubscription CheckoutKind = "subscription"
)
