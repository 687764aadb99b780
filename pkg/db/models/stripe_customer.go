package models

import (
	"time"

	"github.com/google/uuid"
)

// StripeCustomer maps an application user to the processor's customer record.
type StripeCustomer struct {
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	CustomerID string    `gorm:"column:customer_id;not null;uniqueIndex"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
