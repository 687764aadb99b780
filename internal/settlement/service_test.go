package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jordanvales/threadswap-backend/internal/listings"
	"github.com/jordanvales/threadswap-backend/internal/orders"
	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	"github.com/jordanvales/threadswap-backend/pkg/enums"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
)

type gormTxRunner struct {
	conn *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.conn.WithContext(ctx).Transaction(fn)
}

type recordingNotifier struct {
	soldOrders []string
}

func (n *recordingNotifier) ListingSold(_ context.Context, orderID string, _, _ uuid.UUID, _ *uuid.UUID) error {
	n.soldOrders = append(n.soldOrders, orderID)
	return nil
}

type fixture struct {
	conn     *gorm.DB
	svc      *Service
	notifier *recordingNotifier
}

func setupSettlement(t *testing.T) *fixture {
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
		&models.Order{},
		&models.BuyerOrder{},
		&models.SellerOrder{},
	))

	listingRepo, err := listings.NewRepository(conn)
	require.NoError(t, err)
	orderRepo, err := orders.NewRepository(conn)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Tx:       gormTxRunner{conn: conn},
		Listings: listingRepo,
		Orders:   orderRepo,
		Notifier: notifier,
	})
	require.NoError(t, err)

	return &fixture{conn: conn, svc: svc, notifier: notifier}
}

func (f *fixture) seedListing(t *testing.T) Input {
	t.Helper()
	listingID := uuid.New()
	sellerID := uuid.New()
	buyerID := uuid.New()

	require.NoError(t, f.conn.Create(&models.Listing{
		ID:          listingID,
		SellerID:    sellerID,
		Title:       "corduroy blazer",
		PriceCents:  6800,
		Currency:    enums.CurrencyUSD,
		Status:      enums.ListingStatusActive,
		IsAvailable: true,
	}).Error)
	require.NoError(t, f.conn.Create(&models.ListingMirror{
		ListingID:   listingID,
		SellerID:    sellerID,
		Title:       "corduroy blazer",
		PriceCents:  6800,
		Status:      enums.ListingStatusActive,
		IsAvailable: true,
	}).Error)

	return Input{
		PaymentIntentID: "pi_" + uuid.NewString()[:8],
		ListingID:       listingID,
		SellerID:        sellerID,
		BuyerID:         &buyerID,
		AmountCents:     6800,
		Currency:        enums.CurrencyUSD,
	}
}

func TestSettleMarksSoldAndRecordsOrder(t *testing.T) {
	f := setupSettlement(t)
	in := f.seedListing(t)

	require.NoError(t, f.svc.Settle(context.Background(), in))

	var listing models.Listing
	require.NoError(t, f.conn.First(&listing, "id = ?", in.ListingID).Error)
	require.Equal(t, enums.ListingStatusSold, listing.Status)
	require.False(t, listing.IsAvailable)
	require.NotNil(t, listing.SoldAt)
	require.Equal(t, *in.BuyerID, *listing.BuyerID)

	var mirror models.ListingMirror
	require.NoError(t, f.conn.First(&mirror, "listing_id = ?", in.ListingID).Error)
	require.Equal(t, enums.ListingStatusSold, mirror.Status)

	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", in.PaymentIntentID).Error)
	require.Equal(t, enums.OrderStatusPaid, order.Status)

	var buyerCount, sellerCount int64
	require.NoError(t, f.conn.Model(&models.BuyerOrder{}).Count(&buyerCount).Error)
	require.NoError(t, f.conn.Model(&models.SellerOrder{}).Count(&sellerCount).Error)
	require.EqualValues(t, 1, buyerCount)
	require.EqualValues(t, 1, sellerCount)

	require.Equal(t, []string{in.PaymentIntentID}, f.notifier.soldOrders)
}

func TestSettleReplayIsNoOp(t *testing.T) {
	f := setupSettlement(t)
	in := f.seedListing(t)

	require.NoError(t, f.svc.Settle(context.Background(), in))
	require.NoError(t, f.svc.Settle(context.Background(), in))

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.EqualValues(t, 1, orderCount)

	// Only the first settlement notifies.
	require.Len(t, f.notifier.soldOrders, 1)
}

func TestSettleUnknownListingAbsorbed(t *testing.T) {
	f := setupSettlement(t)
	in := Input{
		PaymentIntentID: "pi_ghost",
		ListingID:       uuid.New(),
		SellerID:        uuid.New(),
		AmountCents:     1000,
		Currency:        enums.CurrencyUSD,
	}

	require.NoError(t, f.svc.Settle(context.Background(), in))

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
	require.Empty(t, f.notifier.soldOrders)
}

func TestSettleWrongSellerAbsorbed(t *testing.T) {
	f := setupSettlement(t)
	in := f.seedListing(t)
	in.SellerID = uuid.New()

	require.NoError(t, f.svc.Settle(context.Background(), in))

	var listing models.Listing
	require.NoError(t, f.conn.First(&listing, "id = ?", in.ListingID).Error)
	require.Equal(t, enums.ListingStatusActive, listing.Status)
}

func TestSettleRaceLoserGetsConflict(t *testing.T) {
	f := setupSettlement(t)
	in := f.seedListing(t)

	// Another settlement committed this intent's order already, but the
	// listing row read predates it. The primary key is the backstop.
	require.NoError(t, f.conn.Create(&models.Order{
		ID:          in.PaymentIntentID,
		ListingID:   in.ListingID,
		SellerID:    in.SellerID,
		AmountCents: in.AmountCents,
		Currency:    in.Currency,
		Status:      enums.OrderStatusPaid,
	}).Error)

	err := f.svc.Settle(context.Background(), in)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)

	// The losing transaction must roll back its listing update.
	var listing models.Listing
	require.NoError(t, f.conn.First(&listing, "id = ?", in.ListingID).Error)
	require.Equal(t, enums.ListingStatusActive, listing.Status)

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.EqualValues(t, 1, orderCount)
}

func TestSettleValidatesInput(t *testing.T) {
	f := setupSettlement(t)

	err := f.svc.Settle(context.Background(), Input{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
}
