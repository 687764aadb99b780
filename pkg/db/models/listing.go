package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/pkg/enums"
)

// Listing is the seller-owned canonical record of an item for sale.
type Listing struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Title       string              `gorm:"column:title;not null"`
	PriceCents  int64               `gorm:"column:price_cents;not null"`
	Currency    enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status      enums.ListingStatus `gorm:"column:status;type:text;not null;default:'active'"`
	// No gorm default tag so an explicit false survives the insert.
	IsAvailable bool                `gorm:"column:is_available;not null"`
	BuyerID     *uuid.UUID          `gorm:"column:buyer_id;type:uuid"`
	SoldAt      *time.Time          `gorm:"column:sold_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// ListingMirror is the public read-optimized copy of a listing. It can lag the
// canonical row, so lookups fall back to Listing by seller id when a mirror
// entry is missing.
type ListingMirror struct {
	ListingID   uuid.UUID           `gorm:"column:listing_id;type:uuid;primaryKey"`
	SellerID    uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Title       string              `gorm:"column:title;not null"`
	PriceCents  int64               `gorm:"column:price_cents;not null"`
	Status      enums.ListingStatus `gorm:"column:status;type:text;not null;default:'active'"`
	// No gorm default tag so an explicit false survives the insert.
	IsAvailable bool                `gorm:"column:is_available;not null"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
