package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/pkg/enums"
)

// Shipment stores a purchased label keyed by the provider's shipment id,
// under the user that bought it.
type Shipment struct {
	ShipmentID     string               `gorm:"column:shipment_id;primaryKey"`
	UserID         uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	RateID         string               `gorm:"column:rate_id;not null"`
	Carrier        string               `gorm:"column:carrier;not null"`
	AmountCents    int64                `gorm:"column:amount_cents;not null"`
	Currency       enums.Currency       `gorm:"column:currency;type:text;not null;default:'USD'"`
	TrackingNumber string               `gorm:"column:tracking_number"`
	LabelURL       string               `gorm:"column:label_url"`
	TransactionID  string               `gorm:"column:transaction_id"`
	Status         enums.ShipmentStatus `gorm:"column:status;type:text;not null;default:'quoted'"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
