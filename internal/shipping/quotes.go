package shipping

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/shippo"
	"github.com/jordanvales/threadswap-backend/pkg/types"
)

// Default parcel for apparel when the caller supplies no dimensions.
var defaultParcel = types.Parcel{
	WeightOz: 16,
	LengthIn: 10,
	WidthIn:  8,
	HeightIn: 4,
}

// ProviderClient is the slice of the shipping provider API the services use.
type ProviderClient interface {
	CreateShipment(ctx context.Context, req shippo.ShipmentRequest) (*shippo.Shipment, error)
	PurchaseTransaction(ctx context.Context, rateID string) (*shippo.Transaction, error)
}

type addressResolver interface {
	SellerAddressForListing(ctx context.Context, listingID uuid.UUID) (*types.Address, uuid.UUID, error)
}

// RateOption is one purchasable quote, normalized to minor units.
type RateOption struct {
	ID            string `json:"id"`
	Carrier       string `json:"carrier"`
	Service       string `json:"service"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	EstimatedDays int    `json:"estimated_days"`
}

// Quote is a provider shipment plus its usable rates, cheapest first.
type Quote struct {
	ShipmentID string       `json:"shipment_id"`
	Rates      []RateOption `json:"rates"`
}

// GetRatesInput describes the shipment to quote. Exactly one origin source
// applies: an explicit From address, or the seller behind ListingID.
type GetRatesInput struct {
	To        types.Address
	From      *types.Address
	ListingID *uuid.UUID
	Parcel    *types.Parcel
}

// QuoteService turns addresses into carrier rate quotes.
type QuoteService struct {
	provider ProviderClient
	resolver addressResolver
	carriers map[string]struct{}
	logg     *logger.Logger
}

type QuoteServiceParams struct {
	Provider ProviderClient
	Resolver addressResolver
	// Carriers whitelists providers by name, case-insensitive. Empty means
	// USPS only.
	Carriers []string
	Logger   *logger.Logger
}

func NewQuoteService(params QuoteServiceParams) (*QuoteService, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	carriers := params.Carriers
	if len(carriers) == 0 {
		carriers = []string{"USPS"}
	}
	allowed := make(map[string]struct{}, len(carriers))
	for _, carrier := range carriers {
		allowed[strings.ToUpper(strings.TrimSpace(carrier))] = struct{}{}
	}
	return &QuoteService{
		provider: params.Provider,
		resolver: params.Resolver,
		carriers: allowed,
		logg:     params.Logger,
	}, nil
}

// GetRates validates both endpoints, quotes the shipment upstream, and
// returns the allowed carriers' rates sorted cheapest first.
func (s *QuoteService) GetRates(ctx context.Context, in GetRatesInput) (*Quote, error) {
	if err := ValidateDomesticAddress(in.To); err != nil {
		return nil, err
	}

	from, err := s.resolveOrigin(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := ValidateDomesticAddress(*from); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "seller shipping address is not shippable")
	}

	parcel := defaultParcel
	if in.Parcel != nil {
		parcel = *in.Parcel
	}

	shipment, err := s.provider.CreateShipment(ctx, shippo.ShipmentRequest{
		AddressFrom: *from,
		AddressTo:   in.To,
		Parcel:      parcel,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quoting shipment")
	}

	rates := s.usableRates(ctx, shipment.Rates)
	if len(rates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "no rates available for this shipment")
	}

	return &Quote{ShipmentID: shipment.ObjectID, Rates: rates}, nil
}

func (s *QuoteService) resolveOrigin(ctx context.Context, in GetRatesInput) (*types.Address, error) {
	if in.From != nil {
		return in.From, nil
	}
	if in.ListingID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin address or listing id is required")
	}
	if s.resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "address resolver unavailable")
	}
	addr, _, err := s.resolver.SellerAddressForListing(ctx, *in.ListingID)
	if err != nil {
		return nil, err
	}
	return addr, nil
}

// usableRates filters to whitelisted carriers, drops quotes whose amounts do
// not parse, and sorts ascending by price.
func (s *QuoteService) usableRates(ctx context.Context, rates []shippo.Rate) []RateOption {
	options := make([]RateOption, 0, len(rates))
	for _, rate := range rates {
		if _, ok := s.carriers[strings.ToUpper(strings.TrimSpace(rate.Provider))]; !ok {
			continue
		}
		cents, err := rate.AmountCents()
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "rate_id", rate.ObjectID), "dropping rate with unparseable amount")
			}
			continue
		}
		options = append(options, RateOption{
			ID:            rate.ObjectID,
			Carrier:       rate.Provider,
			Service:       rate.ServiceLevel,
			AmountCents:   cents,
			Currency:      strings.ToUpper(rate.Currency),
			EstimatedDays: rate.EstimatedDays,
		})
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].AmountCents < options[j].AmountCents
	})
	return options
}

// CheapestRate returns the lowest-priced option of a quote.
func (q *Quote) CheapestRate() (RateOption, error) {
	if q == nil || len(q.Rates) == 0 {
		return RateOption{}, pkgerrors.New(pkgerrors.CodePrecondition, "no rates available for this shipment")
	}
	return q.Rates[0], nil
}
