package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	"github.com/jordanvales/threadswap-backend/pkg/enums"
)

// Repository is the persistence surface for canonical listings and their
// public mirrors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	FindForUpdate(ctx context.Context, listingID, sellerID uuid.UUID) (*models.Listing, error)
	MarkSold(ctx context.Context, listing *models.Listing, buyerID *uuid.UUID, soldAt time.Time) error
	FindMirror(ctx context.Context, listingID uuid.UUID) (*models.ListingMirror, error)
	MarkMirrorSold(ctx context.Context, listingID uuid.UUID) error
}

type repo struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed listing repository.
func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &repo{db: db}, nil
}

// WithTx returns a repository bound to the given transaction.
func (r *repo) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repo{db: tx}
}

// Find returns the canonical listing, or nil when it does not exist.
func (r *repo) Find(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Where("id = ?", listingID).
		First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding listing: %w", err)
	}
	return &listing, nil
}

// FindForUpdate loads the listing under a row lock scoped to the seller.
// Returns nil when no such listing exists. The lock holds until the
// surrounding transaction commits.
func (r *repo) FindForUpdate(ctx context.Context, listingID, sellerID uuid.UUID) (*models.Listing, error) {
	query := r.db.WithContext(ctx)
	// sqlite serializes writers on its own and rejects FOR UPDATE syntax.
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var listing models.Listing
	err := query.
		Where("id = ? AND seller_id = ?", listingID, sellerID).
		First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locking listing: %w", err)
	}
	return &listing, nil
}

// MarkSold flips the listing to sold and records the buyer. The caller holds
// the row lock.
func (r *repo) MarkSold(ctx context.Context, listing *models.Listing, buyerID *uuid.UUID, soldAt time.Time) error {
	if listing == nil {
		return fmt.Errorf("listing is required")
	}
	updates := map[string]any{
		"status":       enums.ListingStatusSold,
		"is_available": false,
		"sold_at":      soldAt,
	}
	if buyerID != nil {
		updates["buyer_id"] = *buyerID
	}
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("marking listing sold: %w", err)
	}
	listing.Status = enums.ListingStatusSold
	listing.IsAvailable = false
	listing.BuyerID = buyerID
	listing.SoldAt = &soldAt
	return nil
}

// FindMirror returns the public mirror row, or nil when the mirror has not
// caught up with the canonical listing yet.
func (r *repo) FindMirror(ctx context.Context, listingID uuid.UUID) (*models.ListingMirror, error) {
	var mirror models.ListingMirror
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		First(&mirror).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding listing mirror: %w", err)
	}
	return &mirror, nil
}

// MarkMirrorSold updates the public mirror after settlement. A missing mirror
// row is not an error; the sync pipeline will recreate it as sold.
func (r *repo) MarkMirrorSold(ctx context.Context, listingID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.ListingMirror{}).
		Where("listing_id = ?", listingID).
		Updates(map[string]any{
			"status":       enums.ListingStatusSold,
			"is_available": false,
		}).Error
	if err != nil {
		return fmt.Errorf("marking mirror sold: %w", err)
	}
	return nil
}
