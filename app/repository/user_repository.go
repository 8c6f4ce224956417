package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserIDRequired = errors.New("user id is required")

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert inserts the user on first sight and afterwards only refreshes the
// profile fields. Credits, trial and locale are never touched here.
func (r *userRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return nil, ErrUserIDRequired
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, user.ID)
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetWithSubscriptions loads the user together with all of its subscriptions.
func (r *userRepository) GetWithSubscriptions(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Subscriptions").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", isAdmin).Error
}
