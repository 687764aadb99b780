package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/jordanvales/threadswap-backend/internal/listings"
	"github.com/jordanvales/threadswap-backend/internal/orders"
	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	"github.com/jordanvales/threadswap-backend/pkg/enums"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/metrics"
)

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier fans a completed sale out to interested subscribers. Failures are
// logged, never propagated: the sale has already committed.
type Notifier interface {
	ListingSold(ctx context.Context, orderID string, listingID, sellerID uuid.UUID, buyerID *uuid.UUID) error
}

// Input identifies one settlement attempt, usually derived from a
// payment_intent.succeeded delivery.
type Input struct {
	PaymentIntentID string
	ListingID       uuid.UUID
	SellerID        uuid.UUID
	BuyerID         *uuid.UUID
	AmountCents     int64
	Currency        enums.Currency
}

// Service turns a successful payment into a sold listing plus its order
// records, exactly once per payment intent.
type Service struct {
	tx       TxRunner
	listings listings.Repository
	orders   orders.Repository
	notifier Notifier
	metrics  *metrics.PipelineMetrics
	logg     *logger.Logger
}

type ServiceParams struct {
	Tx       TxRunner
	Listings listings.Repository
	Orders   orders.Repository
	Notifier Notifier
	Metrics  *metrics.PipelineMetrics
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listings repository is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	return &Service{
		tx:       params.Tx,
		listings: params.Listings,
		orders:   params.Orders,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Settle transitions the listing to sold and records the sale in a single
// transaction. Deliveries for unknown or already-sold listings are absorbed
// as no-ops; two racing settlements for the same intent collide on the order
// primary key and the loser surfaces a retryable conflict.
func (s *Service) Settle(ctx context.Context, in Input) error {
	if err := in.validate(); err != nil {
		s.count("invalid")
		return err
	}
	ctx = s.withFields(ctx, in)

	var settled bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listingRepo := s.listings.WithTx(tx)

		listing, err := listingRepo.FindForUpdate(ctx, in.ListingID, in.SellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading listing for settlement")
		}
		if listing == nil {
			s.warn(ctx, "settlement target listing not found, absorbing")
			return nil
		}
		if listing.Status == enums.ListingStatusSold {
			s.info(ctx, "listing already sold, absorbing replay")
			return nil
		}

		now := time.Now().UTC()
		if err := listingRepo.MarkSold(ctx, listing, in.BuyerID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking listing sold")
		}
		if err := listingRepo.MarkMirrorSold(ctx, in.ListingID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking mirror sold")
		}

		order := &models.Order{
			ID:          in.PaymentIntentID,
			ListingID:   in.ListingID,
			SellerID:    in.SellerID,
			BuyerID:     in.BuyerID,
			AmountCents: in.AmountCents,
			Currency:    in.Currency,
			Status:      enums.OrderStatusPaid,
		}
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			if isDuplicateKey(err) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already recorded for intent")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording order")
		}

		settled = true
		return nil
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			s.count("conflict")
		} else {
			s.count("error")
		}
		return err
	}

	if !settled {
		s.count("noop")
		return nil
	}

	s.count("sold")
	s.info(ctx, "listing settled")

	if s.notifier != nil {
		if err := s.notifier.ListingSold(ctx, in.PaymentIntentID, in.ListingID, in.SellerID, in.BuyerID); err != nil {
			s.error(ctx, "sold notification publish failed", err)
		}
	}
	return nil
}

func (in Input) validate() error {
	if strings.TrimSpace(in.PaymentIntentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	if in.ListingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	if in.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if in.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}

// isDuplicateKey matches unique-constraint violations across the drivers the
// service runs against (pgx in production, sqlite in tests).
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value")
}

func (s *Service) withFields(ctx context.Context, in Input) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithListingID(ctx, in.ListingID.String())
	return s.logg.WithPaymentIntentID(ctx, in.PaymentIntentID)
}

func (s *Service) count(result string) {
	s.metrics.IncSettlement(result)
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func (s *Service) error(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
