package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/pkg/logger"
)

// messagePublisher matches the Pub/Sub publisher handle.
type messagePublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// ListingSoldEvent is the trigger payload fanned out after settlement.
type ListingSoldEvent struct {
	OrderID    string     `json:"order_id"`
	ListingID  uuid.UUID  `json:"listing_id"`
	SellerID   uuid.UUID  `json:"seller_id"`
	BuyerID    *uuid.UUID `json:"buyer_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Publisher emits notification triggers onto the notifications topic.
type Publisher struct {
	topic messagePublisher
	logg  *logger.Logger
}

func NewPublisher(topic messagePublisher, logg *logger.Logger) (*Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("topic publisher is required")
	}
	return &Publisher{topic: topic, logg: logg}, nil
}

// ListingSold publishes the sold trigger and waits for the broker ack so the
// caller can log failures while the sale context is still at hand.
func (p *Publisher) ListingSold(ctx context.Context, orderID string, listingID, sellerID uuid.UUID, buyerID *uuid.UUID) error {
	event := ListingSoldEvent{
		OrderID:    orderID,
		ListingID:  listingID,
		SellerID:   sellerID,
		BuyerID:    buyerID,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding listing sold event: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event": "listing.sold"},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing listing sold event: %w", err)
	}

	if p.logg != nil {
		p.logg.Info(p.logg.WithListingID(ctx, listingID.String()), "listing sold trigger published")
	}
	return nil
}
