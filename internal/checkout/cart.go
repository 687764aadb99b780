package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// cartBackend is the slice of the redis client the cart store uses.
type cartBackend interface {
	CartKey(userID string) string
	Del(ctx context.Context, keys ...string) error
}

// CartStore clears a buyer's cart after a completed checkout.
type CartStore struct {
	backend cartBackend
}

func NewCartStore(backend cartBackend) (*CartStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("cart backend is required")
	}
	return &CartStore{backend: backend}, nil
}

func (c *CartStore) Clear(ctx context.Context, buyerID uuid.UUID) error {
	return c.backend.Del(ctx, c.backend.CartKey(buyerID.String()))
}
