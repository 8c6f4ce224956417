package billing

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	EnsureUser(ctx context.Context, userID string) error
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	// GrantCredits inserts the invoice and increments credits in one
	// transaction. It reports false without error when the invoice exists.
	GrantCredits(ctx context.Context, grant CreditGrant) (bool, error)
	CreateWebhookLog(ctx context.Context, log *models.WebhookLog) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// ensureUser inserts a bare row for a user first seen through billing. The
// starting credits and trial are only granted on first sign-in.
func ensureUser(tx *gorm.DB, userID string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&models.User{ID: userID, Locale: models.DefaultLocale}).Error
}

func (r *gormRepository) EnsureUser(ctx context.Context, userID string) error {
	return ensureUser(r.db.WithContext(ctx), userID)
}

func (r *gormRepository) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_customer_id",
			"status",
			"current_period_end",
			"plan",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}
	return db.Where("id = ?", sub.ID).First(sub).Error
}

func (r *gormRepository) GrantCredits(ctx context.Context, grant CreditGrant) (bool, error) {
	meta := datatypes.JSON(grant.RawPayload)
	if !json.Valid(meta) {
		meta = datatypes.JSON("{}")
	}
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, grant.UserID); err != nil {
			return err
		}
		inv := &models.Invoice{
			ID:                grant.InvoiceID,
			UserID:            grant.UserID,
			ProviderInvoiceID: grant.ProviderInvoiceID,
			AmountCents:       grant.AmountCents,
			Currency:          grant.Currency,
			Type:              grant.Type,
			Meta:              meta,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(inv)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		upd := tx.Model(&models.User{}).
			Where("id = ?", grant.UserID).
			UpdateColumn("credits", gorm.Expr("credits + ?", grant.Credits))
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return errors.New("billing: credit increment matched no user")
		}
		created = true
		return nil
	})
	return created, err
}

func (r *gormRepository) CreateWebhookLog(ctx context.Context, log *models.WebhookLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
