package entitlements

import (
	"strings"
	"time"

	"github.com/ManuelReschke/ScoreEngine/app/models"
)

// Decision is the outcome of an entitlement check for one generation.
type Decision struct {
	Allowed             bool
	ExemptFromDecrement bool
	TrialActive         bool
	ActiveSubscription  bool
}

// IsEntitlingStatus reports whether a provider status grants access.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, models.SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// IsActive reports whether a subscription entitles its owner at now. A
// missing period end counts as open-ended.
func IsActive(sub models.Subscription, now time.Time) bool {
	if !IsEntitlingStatus(sub.Status) {
		return false
	}
	return sub.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.After(now)
}

func HasActiveSubscription(subs []models.Subscription, now time.Time) bool {
	for _, sub := range subs {
		if IsActive(sub, now) {
			return true
		}
	}
	return false
}

// Check decides whether the user may consume one generation.
// Trial users without a subscription are not charged; subscribers are.
func Check(user *models.User, subs []models.Subscription, now time.Time) Decision {
	if user == nil {
		return Decision{}
	}
	trial := user.TrialActive(now)
	active := HasActiveSubscription(subs, now)
	return Decision{
		Allowed:             user.Credits > 0 || trial || active,
		ExemptFromDecrement: trial && !active,
		TrialActive:         trial,
		ActiveSubscription:  active,
	}
}
