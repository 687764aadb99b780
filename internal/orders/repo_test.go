package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	"github.com/jordanvales/threadswap-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// One pooled connection keeps every query on the same in-memory database.
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, conn.AutoMigrate(
		&models.Order{},
		&models.BuyerOrder{},
		&models.SellerOrder{},
	))
	return conn
}

func newOrder(intentID string) *models.Order {
	buyerID := uuid.New()
	return &models.Order{
		ID:          intentID,
		ListingID:   uuid.New(),
		SellerID:    uuid.New(),
		BuyerID:     &buyerID,
		AmountCents: 4500,
		Currency:    enums.CurrencyUSD,
		Status:      enums.OrderStatusPaid,
	}
}

func TestCreateWritesAllThreeViews(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	order := newOrder("pi_test_123")
	require.NoError(t, repo.Create(context.Background(), order))

	found, err := repo.Find(context.Background(), "pi_test_123")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, enums.OrderStatusPaid, found.Status)

	buyerRows, err := repo.ListForBuyer(context.Background(), *order.BuyerID)
	require.NoError(t, err)
	require.Len(t, buyerRows, 1)

	sellerRows, err := repo.ListForSeller(context.Background(), order.SellerID)
	require.NoError(t, err)
	require.Len(t, sellerRows, 1)
}

func TestCreateDuplicateIntentIDFails(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	order := newOrder("pi_dup")
	require.NoError(t, repo.Create(context.Background(), order))

	second := newOrder("pi_dup")
	require.Error(t, repo.Create(context.Background(), second))
}

func TestCreateIfAbsentSkipsExisting(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	order := newOrder("pi_settled")
	require.NoError(t, repo.Create(context.Background(), order))

	created, err := repo.CreateIfAbsent(context.Background(), newOrder("pi_settled"))
	require.NoError(t, err)
	require.False(t, created)

	created, err = repo.CreateIfAbsent(context.Background(), newOrder("pi_fresh"))
	require.NoError(t, err)
	require.True(t, created)
}

func TestMarkShippedAdvancesAllViews(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	order := newOrder("pi_ship")
	require.NoError(t, repo.Create(context.Background(), order))
	require.NoError(t, repo.MarkShipped(context.Background(), "pi_ship"))

	found, err := repo.Find(context.Background(), "pi_ship")
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipped, found.Status)

	buyerRows, err := repo.ListForBuyer(context.Background(), *order.BuyerID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipped, buyerRows[0].Status)

	sellerRows, err := repo.ListForSeller(context.Background(), order.SellerID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipped, sellerRows[0].Status)
}

func TestCreateRollsBackWhenMirrorWriteFails(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	// Sabotage the last write of the group; the whole group must vanish.
	require.NoError(t, conn.Migrator().DropTable(&models.SellerOrder{}))

	order := newOrder("pi_atomic")
	require.Error(t, repo.Create(context.Background(), order))

	found, err := repo.Find(context.Background(), "pi_atomic")
	require.NoError(t, err)
	require.Nil(t, found)

	buyerRows, err := repo.ListForBuyer(context.Background(), *order.BuyerID)
	require.NoError(t, err)
	require.Empty(t, buyerRows)
}

func TestCreateIfAbsentRollsBackWhenMirrorWriteFails(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	require.NoError(t, conn.Migrator().DropTable(&models.SellerOrder{}))

	created, err := repo.CreateIfAbsent(context.Background(), newOrder("pi_atomic_absent"))
	require.Error(t, err)
	require.False(t, created)

	found, err := repo.Find(context.Background(), "pi_atomic_absent")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestMarkShippedUnknownOrder(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	err = repo.MarkShipped(context.Background(), "pi_missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
