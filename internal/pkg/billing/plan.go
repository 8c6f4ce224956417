package billing

import (
	"strings"
)

const (
	TopupSmallCredits = 250
	TopupLargeCredits = 1000

	PlanCreditsDefault = 120
	PlanCredits600     = 600
	PlanCredits2000    = 2000
)

// PriceTable maps the configured provider variant ids to products.
type PriceTable struct {
	TopupSmall   string
	TopupLarge   string
	Subscription string
}

// TopupCredits returns the credits bought with a one-time order of the
// given variant, or 0 for anything that is not a configured top-up.
func (p PriceTable) TopupCredits(variantID string) int {
	v := strings.TrimSpace(variantID)
	if v == "" {
		return 0
	}
	switch v {
	case strings.TrimSpace(p.TopupSmall):
		return TopupSmallCredits
	case strings.TrimSpace(p.TopupLarge):
		return TopupLargeCredits
	default:
		return 0
	}
}

// VariantFor returns the variant id configured for a checkout kind.
func (p PriceTable) VariantFor(kind CheckoutKind) string {
	switch kind {
	case CheckoutTopupSmall:
		return strings.TrimSpace(p.TopupSmall)
	case CheckoutTopupLarge:
		return strings.TrimSpace(p.TopupLarge)
	case CheckoutSubscription:
		return strings.TrimSpace(p.Subscription)
	default:
		return ""
	}
}

// PlanCredits returns the monthly credits for a subscription plan name,
// keyed on the "600" and "2000" markers in the name.
func PlanCredits(plan string) int {
	p := strings.ToLower(plan)
	switch {
	case strings.Contains(p, "600"):
		return PlanCredits600
	case strings.Contains(p, "2000"):
		return PlanCredits2000
	default:
		return PlanCreditsDefault
	}
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
