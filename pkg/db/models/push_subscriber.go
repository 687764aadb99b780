package models

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscriber is a device registration for notification triggers. Disabled
// rows are swept in bulk by the notifications service.
type PushSubscriber struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	Token      string     `gorm:"column:token;not null"`
	// No gorm default tag: GORM would omit a zero-value false on insert and
	// let the column default flip the row back to enabled.
	Enabled    bool       `gorm:"column:enabled;not null"`
	LastSeenAt *time.Time `gorm:"column:last_seen_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
