package repository

import (
	"context"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"gorm.io/gorm"
)

// AuditPageSize is the number of audits returned per page.
const AuditPageSize = 10

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetWithSubscriptions(ctx context.Context, id string) (*models.User, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}

// AuditRepository defines the interface for audit history
type AuditRepository interface {
	ListByUser(ctx context.Context, userID, cursor string) (*AuditPage, error)
}

// EventRepository defines the interface for append-only telemetry events
type EventRepository interface {
	Create(ctx context.Context, userID, eventType string, meta map[string]any) (*models.Event, error)
}

// AuditPage is one page of audits, newest first. NextCursor is empty on the
// last page.
type AuditPage struct {
	Items      []models.Audit `json:"items"`
	NextCursor *string        `json:"nextCursor"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	User  UserRepository
	Audit AuditRepository
	Event EventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Audit: NewAuditRepository(db),
		Event: NewEventRepository(db),
	}
}
