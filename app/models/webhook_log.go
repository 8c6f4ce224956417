package models

import "time"

const WebhookSourceLemonSqueezy = "lemon_squeezy"

// WebhookLog keeps every inbound webhook body, valid or not, with the status
// that was returned to the provider.
type WebhookLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Source    string    `gorm:"type:varchar(50);not null;index" json:"source"`
	Payload   string    `gorm:"type:longtext;not null" json:"payload"`
	Status    int       `gorm:"not null" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}
