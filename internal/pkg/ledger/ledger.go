// Package ledger records a successful generation: the audit, its telemetry
// event and the credit it consumed, in one transaction.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"github.com/ManuelReschke/ScoreEngine/app/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInsufficientCredits = errors.New("ledger: insufficient credits")
	ErrInvalidEntry        = errors.New("ledger: user, url and service angle are required")
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeServiceAngle collapses whitespace runs to "_" and upper-cases.
func NormalizeServiceAngle(angle string) string {
	return strings.ToUpper(whitespaceRun.ReplaceAllString(strings.TrimSpace(angle), "_"))
}

// Entry is one generation to record.
type Entry struct {
	UserID       string
	URL          string
	ServiceAngle string
	Locale       string
	RecentUpdate string
	Result       any

	// ExemptFromDecrement skips the credit charge (trial without subscription).
	ExemptFromDecrement bool
	// RequireCredit turns a failed decrement into ErrInsufficientCredits
	// instead of a no-op. Set it when credits were the only entitlement.
	RequireCredit bool
}

type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordGeneration writes audit, event and decrement atomically. Nothing is
// written when any step fails.
func (l *Ledger) RecordGeneration(ctx context.Context, e Entry) (*models.Audit, error) {
	angle := NormalizeServiceAngle(e.ServiceAngle)
	if strings.TrimSpace(e.UserID) == "" || strings.TrimSpace(e.URL) == "" || angle == "" {
		return nil, ErrInvalidEntry
	}
	resultJSON, err := json.Marshal(e.Result)
	if err != nil {
		return nil, fmt.Errorf("ledger: encode result: %w", err)
	}
	locale := strings.TrimSpace(e.Locale)
	if locale == "" {
		locale = models.DefaultLocale
	}

	audit := &models.Audit{
		ID:           uuid.NewString(),
		UserID:       e.UserID,
		URL:          e.URL,
		ServiceAngle: angle,
		InputLocale:  locale,
		ResultJSON:   datatypes.JSON(resultJSON),
	}
	if s := strings.TrimSpace(e.RecentUpdate); s != "" {
		audit.RecentUpdate = &s
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(audit).Error; err != nil {
			return err
		}
		if !e.ExemptFromDecrement {
			res := tx.Model(&models.User{}).
				Where("id = ? AND credits > 0", e.UserID).
				UpdateColumn("credits", gorm.Expr("credits - ?", 1))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 && e.RequireCredit {
				return ErrInsufficientCredits
			}
		}
		_, err := repository.CreateEvent(tx, e.UserID, models.EventTypeAuditCreated, map[string]any{
			"url":          e.URL,
			"serviceAngle": e.ServiceAngle,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return audit, nil
}
