package models

import (
	"time"

	"gorm.io/datatypes"
)

const EventTypeAuditCreated = "audit.created"

// Event is an append-only telemetry entry.
type Event struct {
	ID        string         `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID    string         `gorm:"type:varchar(191);not null;index" json:"userId"`
	Type      string         `gorm:"type:varchar(100);not null;index" json:"type"`
	Meta      datatypes.JSON `json:"meta"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}
