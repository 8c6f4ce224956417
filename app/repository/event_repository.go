package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrEventTypeRequired = errors.New("event type is required")

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, userID, eventType string, meta map[string]any) (*models.Event, error) {
	return CreateEvent(r.db.WithContext(ctx), userID, eventType, meta)
}

// CreateEvent writes an event using the given handle, which may be a
// transaction.
func CreateEvent(db *gorm.DB, userID, eventType string, meta map[string]any) (*models.Event, error) {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return nil, ErrEventTypeRequired
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	event := &models.Event{
		ID:     uuid.NewString(),
		UserID: userID,
		Type:   eventType,
		Meta:   datatypes.JSON(raw),
	}
	if err := db.Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}
