package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/stripe/stripe-go/v84"

	"github.com/jordanvales/threadswap-backend/internal/payments"
	"github.com/jordanvales/threadswap-backend/internal/settlement"
	"github.com/jordanvales/threadswap-backend/pkg/enums"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/metrics"
)

const (
	resultSettled = "settled"
	resultIgnored = "ignored"
	resultError   = "error"
)

// settleRetries bounds how often a delivery re-runs settlement after losing
// a write race. The winner has committed by then, so the retry lands on the
// already-sold path.
const settleRetries = 3

type settler interface {
	Settle(ctx context.Context, in settlement.Input) error
}

type ServiceParams struct {
	Settler settler
	Metrics *metrics.PipelineMetrics
	Logger  *logger.Logger
}

// Service routes verified webhook events to their handlers. Unknown events
// and events with unusable payloads are acknowledged, never retried: the
// sender cannot fix them by redelivering.
type Service struct {
	settler settler
	metrics *metrics.PipelineMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settler required")
	}
	return &Service{
		settler: params.Settler,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		return s.handlePaymentSucceeded(ctx, event)
	case stripe.EventTypePaymentIntentPaymentFailed:
		s.logEvent(ctx, event, "payment failed, no settlement")
		s.metrics.IncWebhookEvent(string(event.Type), resultIgnored)
		return nil
	case stripe.EventTypePayoutPaid, stripe.EventTypePayoutFailed, stripe.EventTypeAccountUpdated:
		s.logEvent(ctx, event, "account lifecycle event acknowledged")
		s.metrics.IncWebhookEvent(string(event.Type), resultIgnored)
		return nil
	default:
		s.metrics.IncWebhookEvent(string(event.Type), resultIgnored)
		return nil
	}
}

func (s *Service) handlePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}

	in, ok := s.settlementInput(ctx, event, &intent)
	if !ok {
		s.metrics.IncWebhookEvent(string(event.Type), resultIgnored)
		return nil
	}

	backoff := retry.WithMaxRetries(settleRetries, retry.NewExponential(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.settler.Settle(ctx, in)
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			// Another delivery won every race; the sale is recorded.
			s.logEvent(ctx, event, "settlement conceded to concurrent delivery")
			s.metrics.IncWebhookEvent(string(event.Type), resultSettled)
			return nil
		}
		s.metrics.IncWebhookEvent(string(event.Type), resultError)
		return err
	}

	s.metrics.IncWebhookEvent(string(event.Type), resultSettled)
	return nil
}

// settlementInput extracts the sale identifiers stamped onto the intent at
// creation time. Deliveries without them cannot be settled by redelivery, so
// they are dropped with a log line rather than surfaced as errors.
func (s *Service) settlementInput(ctx context.Context, event *stripe.Event, intent *stripe.PaymentIntent) (settlement.Input, bool) {
	listingRaw := intent.Metadata[payments.MetadataListingID]
	sellerRaw := intent.Metadata[payments.MetadataSellerID]
	buyerRaw := intent.Metadata[payments.MetadataBuyerID]

	if listingRaw == "" || sellerRaw == "" {
		s.logEvent(ctx, event, "payment intent missing sale metadata, dropping")
		return settlement.Input{}, false
	}

	listingID, err := uuid.Parse(listingRaw)
	if err != nil {
		s.logEvent(ctx, event, "payment intent carries malformed listing id, dropping")
		return settlement.Input{}, false
	}
	sellerID, err := uuid.Parse(sellerRaw)
	if err != nil {
		s.logEvent(ctx, event, "payment intent carries malformed seller id, dropping")
		return settlement.Input{}, false
	}

	var buyerID *uuid.UUID
	if buyerRaw != "" {
		parsed, err := uuid.Parse(buyerRaw)
		if err != nil {
			s.logEvent(ctx, event, "payment intent carries malformed buyer id, dropping")
			return settlement.Input{}, false
		}
		buyerID = &parsed
	}

	amount := intent.AmountReceived
	if amount == 0 {
		amount = intent.Amount
	}

	return settlement.Input{
		PaymentIntentID: intent.ID,
		ListingID:       listingID,
		SellerID:        sellerID,
		BuyerID:         buyerID,
		AmountCents:     amount,
		Currency:        enums.Currency(strings.ToUpper(string(intent.Currency))),
	}, true
}

func (s *Service) logEvent(ctx context.Context, event *stripe.Event, msg string) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})
	s.logg.Warn(ctx, msg)
}
