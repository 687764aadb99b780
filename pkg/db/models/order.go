package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/pkg/enums"
)

// Order is the central sale record. Its primary key is the payment intent id,
// which is what makes settlement idempotent: two concurrent deliveries for the
// same intent cannot both insert this row.
type Order struct {
	ID          string            `gorm:"column:id;primaryKey"`
	ListingID   uuid.UUID         `gorm:"column:listing_id;type:uuid;not null;index"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	BuyerID     *uuid.UUID        `gorm:"column:buyer_id;type:uuid;index"`
	AmountCents int64             `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'paid'"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BuyerOrder mirrors Order into a buyer-scoped view. Written in the same
// transaction as Order.
type BuyerOrder struct {
	OrderID     string            `gorm:"column:order_id;primaryKey"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	ListingID   uuid.UUID         `gorm:"column:listing_id;type:uuid;not null"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	AmountCents int64             `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'paid'"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// SellerOrder mirrors Order into a seller-scoped view. Written in the same
// transaction as Order.
type SellerOrder struct {
	OrderID     string            `gorm:"column:order_id;primaryKey"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	ListingID   uuid.UUID         `gorm:"column:listing_id;type:uuid;not null"`
	BuyerID     *uuid.UUID        `gorm:"column:buyer_id;type:uuid"`
	AmountCents int64             `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'paid'"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
