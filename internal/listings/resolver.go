package listings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/types"
)

// AddressResolver looks up the ship-from address for a listing's seller.
// It prefers the public mirror and falls back to the canonical listing when
// the mirror has not caught up yet.
type AddressResolver struct {
	db       *gorm.DB
	listings Repository
	logg     *logger.Logger
}

func NewAddressResolver(db *gorm.DB, listings Repository, logg *logger.Logger) (*AddressResolver, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listings repository is required")
	}
	return &AddressResolver{db: db, listings: listings, logg: logg}, nil
}

// SellerAddressForListing resolves the seller behind the listing and returns
// their configured ship-from address.
func (r *AddressResolver) SellerAddressForListing(ctx context.Context, listingID uuid.UUID) (*types.Address, uuid.UUID, error) {
	sellerID, err := r.sellerForListing(ctx, listingID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	var seller models.Seller
	err = r.db.WithContext(ctx).
		Where("id = ?", sellerID).
		First(&seller).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, uuid.Nil, pkgerrors.New(pkgerrors.CodePrecondition, "seller record is missing")
	}
	if err != nil {
		return nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading seller")
	}

	if seller.ShipFromAddress == nil {
		return nil, uuid.Nil, pkgerrors.New(pkgerrors.CodePrecondition, "seller shipping address is not configured")
	}
	return seller.ShipFromAddress, seller.ID, nil
}

func (r *AddressResolver) sellerForListing(ctx context.Context, listingID uuid.UUID) (uuid.UUID, error) {
	mirror, err := r.listings.FindMirror(ctx, listingID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading listing mirror")
	}
	if mirror != nil {
		return mirror.SellerID, nil
	}

	// Mirror lag: go to the canonical listing.
	if r.logg != nil {
		r.logg.Warn(r.logg.WithListingID(ctx, listingID.String()), "listing mirror miss, using canonical lookup")
	}
	listing, err := r.listings.Find(ctx, listingID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading listing")
	}
	if listing == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return listing.SellerID, nil
}
