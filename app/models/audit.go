package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit is the immutable record of one successful generation.
type Audit struct {
	ID           string         `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID       string         `gorm:"type:varchar(191);not null;index:idx_audits_user_created,priority:1" json:"userId"`
	URL          string         `gorm:"type:text;not null" json:"url"`
	ServiceAngle string         `gorm:"type:varchar(100);not null" json:"serviceAngle"`
	InputLocale  string         `gorm:"type:varchar(10);default:'en'" json:"inputLocale"`
	RecentUpdate *string        `gorm:"type:text" json:"recentUpdate"`
	ResultJSON   datatypes.JSON `json:"resultJson"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index:idx_audits_user_created,priority:2" json:"createdAt"`
}
