package listings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/types"
)

func setupListingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// One pooled connection keeps every query on the same in-memory database.
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, conn.AutoMigrate(
		&models.Listing{},
		&models.ListingMirror{},
		&models.Seller{},
	))
	return conn
}

func newResolver(t *testing.T, conn *gorm.DB) *AddressResolver {
	t.Helper()
	repo, err := NewRepository(conn)
	require.NoError(t, err)
	resolver, err := NewAddressResolver(conn, repo, nil)
	require.NoError(t, err)
	return resolver
}

func testAddress() *types.Address {
	return &types.Address{
		Name:       "Jordan Seller",
		Street1:    "100 Mission St",
		City:       "San Francisco",
		State:      "CA",
		PostalCode: "94105",
		Country:    "US",
	}
}

func TestResolverUsesMirror(t *testing.T) {
	conn := setupListingsTestDB(t)
	resolver := newResolver(t, conn)

	sellerID := uuid.New()
	listingID := uuid.New()
	require.NoError(t, conn.Create(&models.Seller{
		ID:              sellerID,
		DisplayName:     "vintage-closet",
		ShipFromAddress: testAddress(),
	}).Error)
	require.NoError(t, conn.Create(&models.ListingMirror{
		ListingID:  listingID,
		SellerID:   sellerID,
		Title:      "denim jacket",
		PriceCents: 4500,
	}).Error)

	addr, gotSeller, err := resolver.SellerAddressForListing(context.Background(), listingID)
	require.NoError(t, err)
	require.Equal(t, sellerID, gotSeller)
	require.Equal(t, "94105", addr.PostalCode)
}

func TestResolverFallsBackToCanonicalListing(t *testing.T) {
	conn := setupListingsTestDB(t)
	resolver := newResolver(t, conn)

	sellerID := uuid.New()
	listingID := uuid.New()
	require.NoError(t, conn.Create(&models.Seller{
		ID:              sellerID,
		DisplayName:     "vintage-closet",
		ShipFromAddress: testAddress(),
	}).Error)
	// No mirror row: only the canonical listing exists.
	require.NoError(t, conn.Create(&models.Listing{
		ID:         listingID,
		SellerID:   sellerID,
		Title:      "denim jacket",
		PriceCents: 4500,
	}).Error)

	addr, gotSeller, err := resolver.SellerAddressForListing(context.Background(), listingID)
	require.NoError(t, err)
	require.Equal(t, sellerID, gotSeller)
	require.Equal(t, "CA", addr.State)
}

func TestResolverUnknownListing(t *testing.T) {
	conn := setupListingsTestDB(t)
	resolver := newResolver(t, conn)

	_, _, err := resolver.SellerAddressForListing(context.Background(), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestResolverSellerAddressMissing(t *testing.T) {
	conn := setupListingsTestDB(t)
	resolver := newResolver(t, conn)

	sellerID := uuid.New()
	listingID := uuid.New()
	require.NoError(t, conn.Create(&models.Seller{
		ID:          sellerID,
		DisplayName: "no-address-yet",
	}).Error)
	require.NoError(t, conn.Create(&models.ListingMirror{
		ListingID:  listingID,
		SellerID:   sellerID,
		Title:      "wool coat",
		PriceCents: 8000,
	}).Error)

	_, _, err := resolver.SellerAddressForListing(context.Background(), listingID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePrecondition), "got %v", err)
}
