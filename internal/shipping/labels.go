package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	"github.com/jordanvales/threadswap-backend/pkg/enums"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/shippo"
)

// PurchaseInput identifies the rate being bought and who is buying it.
type PurchaseInput struct {
	UserID     uuid.UUID
	ShipmentID string
	RateID     string
}

// Label is a successfully purchased shipping label.
type Label struct {
	ShipmentID     string `json:"shipment_id"`
	TransactionID  string `json:"transaction_id"`
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url"`
	Carrier        string `json:"carrier"`
	AmountCents    int64  `json:"amount_cents"`
}

// LabelService buys labels and records the purchase.
type LabelService struct {
	provider  ProviderClient
	shipments ShipmentRepository
	logg      *logger.Logger
}

type LabelServiceParams struct {
	Provider  ProviderClient
	Shipments ShipmentRepository
	Logger    *logger.Logger
}

func NewLabelService(params LabelServiceParams) (*LabelService, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if params.Shipments == nil {
		return nil, fmt.Errorf("shipment repository is required")
	}
	return &LabelService{
		provider:  params.Provider,
		shipments: params.Shipments,
		logg:      params.Logger,
	}, nil
}

// Purchase buys the label for a previously quoted rate. Anything short of an
// upstream SUCCESS is a failure: nothing is persisted and the provider's
// messages travel back in the error details.
func (s *LabelService) Purchase(ctx context.Context, in PurchaseInput) (*Label, error) {
	if in.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(in.ShipmentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id is required")
	}
	if strings.TrimSpace(in.RateID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate id is required")
	}

	txn, err := s.provider.PurchaseTransaction(ctx, in.RateID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purchasing label")
	}
	if txn.Status != shippo.TransactionStatusSuccess {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "label purchase failed").
			WithDetails(map[string]any{"status": txn.Status, "messages": txn.Messages})
	}

	amountCents, err := txn.Rate.AmountCents()
	if err != nil {
		amountCents = 0
		if s.logg != nil {
			s.logg.Warn(ctx, "purchased label has unparseable rate amount")
		}
	}

	shipment := &models.Shipment{
		ShipmentID:     in.ShipmentID,
		UserID:         in.UserID,
		RateID:         in.RateID,
		Carrier:        txn.Rate.Provider,
		AmountCents:    amountCents,
		Currency:       enums.Currency(strings.ToUpper(nonEmpty(txn.Rate.Currency, "USD"))),
		TrackingNumber: txn.TrackingNumber,
		LabelURL:       txn.LabelURL,
		TransactionID:  txn.ObjectID,
		Status:         enums.ShipmentStatusPurchased,
	}
	if err := s.shipments.Save(ctx, shipment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording shipment")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "shipment_id", in.ShipmentID), "shipping label purchased")
	}

	return &Label{
		ShipmentID:     in.ShipmentID,
		TransactionID:  txn.ObjectID,
		TrackingNumber: txn.TrackingNumber,
		LabelURL:       txn.LabelURL,
		Carrier:        txn.Rate.Provider,
		AmountCents:    amountCents,
	}, nil
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
