package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
)

// Metadata keys stamped onto every payment intent. The webhook pipeline
// depends on these to route settlement.
const (
	MetadataListingID = "listingId"
	MetadataSellerID  = "sellerId"
	MetadataBuyerID   = "buyerId"
)

// Service prepares payment intents for the mobile/web payment sheet.
type Service struct {
	gateway   StripeGateway
	customers CustomerRepository
	logg      *logger.Logger
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Gateway   StripeGateway
	Customers CustomerRepository
	Logger    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customers repository is required")
	}
	return &Service{
		gateway:   params.Gateway,
		customers: params.Customers,
		logg:      params.Logger,
	}, nil
}

// CreateIntentInput identifies the sale being prepared for payment.
type CreateIntentInput struct {
	BuyerID     uuid.UUID
	ListingID   uuid.UUID
	SellerID    uuid.UUID
	AmountCents int64
	Currency    string

	// StripeVersion, when set, requests an ephemeral key pinned to that
	// API version for the client-side payment sheet.
	StripeVersion string
}

// IntentResult carries everything the client needs to present the sheet.
type IntentResult struct {
	IntentID           string `json:"intent_id"`
	ClientSecret       string `json:"client_secret"`
	CustomerID         string `json:"customer_id"`
	EphemeralKeySecret string `json:"ephemeral_key_secret,omitempty"`
	IdempotencyKey     string `json:"-"`
}

// CreateIntent ensures the buyer has a processor customer, then creates a
// payment intent under a deterministic idempotency key. Retries of the same
// (buyer, listing, amount) triple land on the same intent.
func (s *Service) CreateIntent(ctx context.Context, in CreateIntentInput) (*IntentResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	customerID, created, err := s.ensureCustomer(ctx, in.BuyerID)
	if err != nil {
		return nil, err
	}

	key := PaymentKey(in.BuyerID.String(), in.ListingID.String(), in.AmountCents)
	ctx = s.withIntentFields(ctx, in, key)

	var ephemeralSecret string
	if in.StripeVersion != "" {
		ekParams := &stripe.EphemeralKeyParams{
			Customer:      stripe.String(customerID),
			StripeVersion: stripe.String(in.StripeVersion),
		}
		ek, err := s.gateway.CreateEphemeralKey(ctx, ekParams)
		if err != nil {
			s.rollbackFreshCustomer(ctx, created, in.BuyerID, customerID)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating ephemeral key")
		}
		ephemeralSecret = ek.Secret
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.AmountCents),
		Currency: stripe.String(strings.ToLower(in.Currency)),
		Customer: stripe.String(customerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	piParams.AddMetadata(MetadataListingID, in.ListingID.String())
	piParams.AddMetadata(MetadataSellerID, in.SellerID.String())
	piParams.AddMetadata(MetadataBuyerID, in.BuyerID.String())
	piParams.SetIdempotencyKey(key)

	intent, err := s.gateway.CreatePaymentIntent(ctx, piParams)
	if err != nil {
		s.rollbackFreshCustomer(ctx, created, in.BuyerID, customerID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment intent")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithPaymentIntentID(ctx, intent.ID), "payment intent prepared")
	}

	return &IntentResult{
		IntentID:           intent.ID,
		ClientSecret:       intent.ClientSecret,
		CustomerID:         customerID,
		EphemeralKeySecret: ephemeralSecret,
		IdempotencyKey:     key,
	}, nil
}

// ConfirmPaid reports whether the intent has reached a captured or
// capturable state. Used by checkout before any shipping spend.
func (s *Service) ConfirmPaid(ctx context.Context, intentID string) (bool, error) {
	if strings.TrimSpace(intentID) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	intent, err := s.gateway.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching payment intent")
	}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		return true, nil
	default:
		return false, nil
	}
}

func (in CreateIntentInput) validate() error {
	if in.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
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
	if len(strings.TrimSpace(in.Currency)) != 3 {
		return pkgerrors.New(pkgerrors.CodeValidation, "currency must be a 3-letter code")
	}
	return nil
}

func (s *Service) ensureCustomer(ctx context.Context, buyerID uuid.UUID) (customerID string, created bool, err error) {
	existing, err := s.customers.Find(ctx, buyerID)
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer mapping")
	}
	if existing != nil {
		return existing.CustomerID, false, nil
	}

	params := &stripe.CustomerParams{}
	params.AddMetadata("userId", buyerID.String())
	cust, err := s.gateway.CreateCustomer(ctx, params)
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating customer")
	}

	record := &models.StripeCustomer{UserID: buyerID, CustomerID: cust.ID}
	if err := s.customers.Create(ctx, record); err != nil {
		// The processor-side customer is orphaned without its mapping.
		if delErr := s.gateway.DeleteCustomer(ctx, cust.ID); delErr != nil && s.logg != nil {
			s.logg.Error(ctx, "orphaned customer cleanup failed", delErr)
		}
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting customer mapping")
	}
	return cust.ID, true, nil
}

// rollbackFreshCustomer undoes a customer created earlier in this call so a
// failed preparation does not leave half-provisioned state behind. Customers
// that existed before the call are left alone.
func (s *Service) rollbackFreshCustomer(ctx context.Context, created bool, buyerID uuid.UUID, customerID string) {
	if !created {
		return
	}
	if err := s.gateway.DeleteCustomer(ctx, customerID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "customer rollback failed at processor", err)
	}
	if err := s.customers.Delete(ctx, buyerID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "customer rollback failed in store", err)
	}
}

func (s *Service) withIntentFields(ctx context.Context, in CreateIntentInput, key string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, map[string]any{
		"buyer_id":        in.BuyerID.String(),
		"listing_id":      in.ListingID.String(),
		"amount_cents":    in.AmountCents,
		"idempotency_key": key,
	})
}
