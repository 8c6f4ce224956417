package models

import (
	"strings"
	"time"
)

const (
	DefaultStartingCredits = 10
	DefaultTrialPeriod     = 7 * 24 * time.Hour
	DefaultLocale          = "en"
)

// User is the local account record. The ID is issued by the identity
// provider and is never generated here.
type User struct {
	ID            string         `gorm:"primaryKey;type:varchar(191)" json:"id"`
	Email         string         `gorm:"type:varchar(200);default:''" json:"email"`
	Name          string         `gorm:"type:varchar(150);default:''" json:"name"`
	Credits       int            `gorm:"not null;default:0" json:"credits"`
	TrialEndsAt   *time.Time     `gorm:"default:null" json:"trialEndsAt"`
	Locale        string         `gorm:"type:varchar(10);default:'en'" json:"locale"`
	IsAdmin       bool           `gorm:"default:false" json:"isAdmin"`
	Subscriptions []Subscription `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// NewUser builds the record inserted on first authenticated access:
// starting credits, a trial window and the default locale.
func NewUser(id, email, name string, now time.Time) *User {
	trialEnd := now.Add(DefaultTrialPeriod)
	return &User{
		ID:          strings.TrimSpace(id),
		Email:       strings.TrimSpace(email),
		Name:        strings.TrimSpace(name),
		Credits:     DefaultStartingCredits,
		TrialEndsAt: &trialEnd,
		Locale:      DefaultLocale,
	}
}

// TrialActive reports whether the trial window is still open at now.
func (u *User) TrialActive(now time.Time) bool {
	return u != nil && u.TrialEndsAt != nil && u.TrialEndsAt.After(now)
}
