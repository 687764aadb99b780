package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/pkg/types"
)

// Seller holds the seller profile data the checkout pipeline needs, most
// importantly the configured ship-from address.
type Seller struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	DisplayName     string         `gorm:"column:display_name;not null"`
	ShipFromAddress *types.Address `gorm:"column:ship_from_address;serializer:json"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
