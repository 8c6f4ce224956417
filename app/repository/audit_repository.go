package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// ListByUser returns the newest audits of a user. With a cursor the page
// starts strictly after the audit the cursor names. An unknown cursor (or one
// owned by another user) yields the first page.
func (r *auditRepository) ListByUser(ctx context.Context, userID, cursor string) (*AuditPage, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)

	cursor = strings.TrimSpace(cursor)
	if cursor != "" {
		var anchor models.Audit
		err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", cursor, userID).First(&anchor).Error
		switch {
		case err == nil:
			q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	var audits []models.Audit
	if err := q.Order("created_at DESC").Order("id DESC").Limit(AuditPageSize + 1).Find(&audits).Error; err != nil {
		return nil, err
	}

	page := &AuditPage{Items: audits}
	if len(audits) > AuditPageSize {
		page.Items = audits[:AuditPageSize]
		next := page.Items[AuditPageSize-1].ID
		page.NextCursor = &next
	}
	if page.Items == nil {
		page.Items = []models.Audit{}
	}
	return page, nil
}
