package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	"github.com/jordanvales/threadswap-backend/pkg/enums"
)

// Repository persists the central order record plus its buyer- and
// seller-scoped mirrors. All three rows are written in one transaction so a
// reader never sees a sale in only some of the views.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateIfAbsent(ctx context.Context, order *models.Order) (created bool, err error)
	Find(ctx context.Context, orderID string) (*models.Order, error)
	MarkShipped(ctx context.Context, orderID string) error
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.BuyerOrder, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.SellerOrder, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &repo{db: db}, nil
}

func (r *repo) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repo{db: tx}
}

// Create inserts the order and both mirrors. A duplicate order id surfaces
// the underlying unique-constraint error unchanged so callers can translate
// it into their own conflict handling.
func (r *repo) Create(ctx context.Context, order *models.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order with id is required")
	}
	// One transaction covers the order and both mirrors; callers already
	// inside a transaction get a savepoint.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("creating order: %w", err)
		}
		if order.BuyerID != nil {
			buyerRow := models.BuyerOrder{
				OrderID:     order.ID,
				BuyerID:     *order.BuyerID,
				ListingID:   order.ListingID,
				SellerID:    order.SellerID,
				AmountCents: order.AmountCents,
				Currency:    order.Currency,
				Status:      order.Status,
			}
			if err := tx.Create(&buyerRow).Error; err != nil {
				return fmt.Errorf("creating buyer order: %w", err)
			}
		}
		sellerRow := models.SellerOrder{
			OrderID:     order.ID,
			SellerID:    order.SellerID,
			ListingID:   order.ListingID,
			BuyerID:     order.BuyerID,
			AmountCents: order.AmountCents,
			Currency:    order.Currency,
			Status:      order.Status,
		}
		if err := tx.Create(&sellerRow).Error; err != nil {
			return fmt.Errorf("creating seller order: %w", err)
		}
		return nil
	})
}

// CreateIfAbsent inserts the order and mirrors unless a row with the same id
// already exists. Used by checkout, which can race the webhook settlement for
// the same payment intent.
func (r *repo) CreateIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	if order == nil || order.ID == "" {
		return false, fmt.Errorf("order with id is required")
	}
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(order)
		if res.Error != nil {
			return fmt.Errorf("creating order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true

		if order.BuyerID != nil {
			buyerRow := models.BuyerOrder{
				OrderID:     order.ID,
				BuyerID:     *order.BuyerID,
				ListingID:   order.ListingID,
				SellerID:    order.SellerID,
				AmountCents: order.AmountCents,
				Currency:    order.Currency,
				Status:      order.Status,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&buyerRow).Error; err != nil {
				return fmt.Errorf("creating buyer order: %w", err)
			}
		}
		sellerRow := models.SellerOrder{
			OrderID:     order.ID,
			SellerID:    order.SellerID,
			ListingID:   order.ListingID,
			BuyerID:     order.BuyerID,
			AmountCents: order.AmountCents,
			Currency:    order.Currency,
			Status:      order.Status,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sellerRow).Error; err != nil {
			return fmt.Errorf("creating seller order: %w", err)
		}
		return nil
	})
	if err != nil {
		created = false
		return false, err
	}
	return created, nil
}

func (r *repo) Find(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding order: %w", err)
	}
	return &order, nil
}

// MarkShipped advances the order and both mirrors to shipped. An order that
// is paid but not yet shipped stays distinguishable until this runs.
func (r *repo) MarkShipped(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ?", orderID).
			Update("status", enums.OrderStatusShipped)
		if res.Error != nil {
			return fmt.Errorf("updating order status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(&models.BuyerOrder{}).
			Where("order_id = ?", orderID).
			Update("status", enums.OrderStatusShipped).Error; err != nil {
			return fmt.Errorf("updating buyer order status: %w", err)
		}
		if err := tx.Model(&models.SellerOrder{}).
			Where("order_id = ?", orderID).
			Update("status", enums.OrderStatusShipped).Error; err != nil {
			return fmt.Errorf("updating seller order status: %w", err)
		}
		return nil
	})
}

func (r *repo) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.BuyerOrder, error) {
	var rows []models.BuyerOrder
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing buyer orders: %w", err)
	}
	return rows, nil
}

func (r *repo) ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.SellerOrder, error) {
	var rows []models.SellerOrder
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing seller orders: %w", err)
	}
	return rows, nil
}
