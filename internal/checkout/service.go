package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/internal/listings"
	"github.com/jordanvales/threadswap-backend/internal/orders"
	"github.com/jordanvales/threadswap-backend/internal/shipping"
	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	"github.com/jordanvales/threadswap-backend/pkg/enums"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/metrics"
	"github.com/jordanvales/threadswap-backend/pkg/types"
)

// Saga step names, reported in metrics and error details so a failed
// checkout says exactly how far it got.
const (
	StepValidate = "validate"
	StepRates    = "rates"
	StepPayment  = "payment"
	StepLabel    = "label"
	StepPersist  = "persist"
	StepOK       = "ok"
)

type rateQuoter interface {
	GetRates(ctx context.Context, in shipping.GetRatesInput) (*shipping.Quote, error)
}

type labelPurchaser interface {
	Purchase(ctx context.Context, in shipping.PurchaseInput) (*shipping.Label, error)
}

type paymentConfirmer interface {
	ConfirmPaid(ctx context.Context, intentID string) (bool, error)
}

type cartClearer interface {
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

// Input is one checkout attempt for a single listing.
type Input struct {
	BuyerID         uuid.UUID
	ListingID       uuid.UUID
	PaymentIntentID string
	ShipTo          types.Address
	Parcel          *types.Parcel
}

// Result is the completed checkout.
type Result struct {
	OrderID     string              `json:"order_id"`
	Rate        shipping.RateOption `json:"rate"`
	Label       *shipping.Label     `json:"label"`
	AmountCents int64               `json:"amount_cents"`
}

// Service drives the checkout saga: validate the destination, quote and pick
// the cheapest allowed rate, confirm the payment, buy the label, persist the
// order, clear the cart. A label failure after payment writes nothing; the
// webhook settlement records the sale from the captured intent, so the buyer
// ends up with a paid, unshipped order without the saga duplicating it.
type Service struct {
	listings listings.Repository
	orders   orders.Repository
	quoter   rateQuoter
	labels   labelPurchaser
	payments paymentConfirmer
	cart     cartClearer
	metrics  *metrics.PipelineMetrics
	logg     *logger.Logger
}

type ServiceParams struct {
	Listings listings.Repository
	Orders   orders.Repository
	Quoter   rateQuoter
	Labels   labelPurchaser
	Payments paymentConfirmer
	Cart     cartClearer
	Metrics  *metrics.PipelineMetrics
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Listings == nil {
		return nil, fmt.Errorf("listings repository is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Quoter == nil {
		return nil, fmt.Errorf("rate quoter is required")
	}
	if params.Labels == nil {
		return nil, fmt.Errorf("label purchaser is required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment confirmer is required")
	}
	return &Service{
		listings: params.Listings,
		orders:   params.Orders,
		quoter:   params.Quoter,
		labels:   params.Labels,
		payments: params.Payments,
		cart:     params.Cart,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Checkout runs the saga end to end.
func (s *Service) Checkout(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	result, step, err := s.run(ctx, in)
	s.metrics.ObserveCheckout(step, time.Since(start))
	if err != nil {
		return nil, tagStep(err, step)
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, in Input) (*Result, string, error) {
	ctx = s.withFields(ctx, in)

	listing, err := s.validate(ctx, in)
	if err != nil {
		return nil, StepValidate, err
	}

	quote, err := s.quoter.GetRates(ctx, shipping.GetRatesInput{
		To:        in.ShipTo,
		ListingID: &in.ListingID,
		Parcel:    in.Parcel,
	})
	if err != nil {
		return nil, StepRates, err
	}
	rate, err := quote.CheapestRate()
	if err != nil {
		return nil, StepRates, err
	}

	paid, err := s.payments.ConfirmPaid(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, StepPayment, err
	}
	if !paid {
		return nil, StepPayment, pkgerrors.New(pkgerrors.CodePaymentIncomplete, "payment has not completed")
	}

	label, labelErr := s.labels.Purchase(ctx, shipping.PurchaseInput{
		UserID:     in.BuyerID,
		ShipmentID: quote.ShipmentID,
		RateID:     rate.ID,
	})
	if labelErr != nil {
		// Money has moved, but the saga writes no order here: the webhook
		// settlement records the sale from the confirmed intent, and the
		// intent stays captured. Surfacing the shipping failure as its own
		// code keeps it distinguishable from an incomplete payment.
		return nil, StepLabel, pkgerrors.Wrap(pkgerrors.CodeShippingFailed, labelErr, "label purchase failed after payment")
	}

	if err := s.persistOrder(ctx, in, listing, enums.OrderStatusShipped); err != nil {
		return nil, StepPersist, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting order")
	}

	if s.cart != nil {
		if err := s.cart.Clear(ctx, in.BuyerID); err != nil {
			s.error(ctx, "clearing cart after checkout", err)
		}
	}

	s.info(ctx, "checkout completed")
	return &Result{
		OrderID:     in.PaymentIntentID,
		Rate:        rate,
		Label:       label,
		AmountCents: listing.PriceCents,
	}, StepOK, nil
}

func (s *Service) validate(ctx context.Context, in Input) (*models.Listing, error) {
	if in.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if in.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	if strings.TrimSpace(in.PaymentIntentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	if err := shipping.ValidateDomesticAddress(in.ShipTo); err != nil {
		return nil, err
	}

	listing, err := s.listings.Find(ctx, in.ListingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading listing")
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if listing.Status == enums.ListingStatusSold || !listing.IsAvailable {
		// Sold to this buyer already (webhook settlement won) is fine.
		if listing.BuyerID == nil || *listing.BuyerID != in.BuyerID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "listing is no longer available")
		}
	}
	return listing, nil
}

// persistOrder records the sale keyed by the payment intent. The webhook
// settlement path may have inserted the order already; that is not an error.
func (s *Service) persistOrder(ctx context.Context, in Input, listing *models.Listing, status enums.OrderStatus) error {
	buyerID := in.BuyerID
	order := &models.Order{
		ID:          in.PaymentIntentID,
		ListingID:   listing.ID,
		SellerID:    listing.SellerID,
		BuyerID:     &buyerID,
		AmountCents: listing.PriceCents,
		Currency:    listing.Currency,
		Status:      status,
	}
	created, err := s.orders.CreateIfAbsent(ctx, order)
	if err != nil {
		return err
	}
	if !created && status == enums.OrderStatusShipped {
		// Settlement wrote it first as paid; advance it.
		if err := s.orders.MarkShipped(ctx, in.PaymentIntentID); err != nil {
			return err
		}
	}
	return nil
}

func tagStep(err error, step string) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}
	if typed.Details() == nil {
		typed = typed.WithDetails(map[string]any{"step": step})
	}
	return typed
}

func (s *Service) withFields(ctx context.Context, in Input) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithUserID(ctx, in.BuyerID.String())
	ctx = s.logg.WithListingID(ctx, in.ListingID.String())
	return s.logg.WithPaymentIntentID(ctx, in.PaymentIntentID)
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *Service) error(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
