package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/api/middleware"
	"github.com/jordanvales/threadswap-backend/api/responses"
	"github.com/jordanvales/threadswap-backend/api/validators"
	"github.com/jordanvales/threadswap-backend/internal/checkout"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/types"
)

type checkoutRequest struct {
	ListingID       string        `json:"listing_id" validate:"required,uuid"`
	PaymentIntentID string        `json:"payment_intent_id" validate:"required"`
	ShipTo          types.Address `json:"ship_to" validate:"required"`
	Parcel          *types.Parcel `json:"parcel,omitempty"`
}

// Checkout runs the purchase saga for the authenticated buyer.
func Checkout(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		buyerID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Checkout(ctx, checkout.Input{
			BuyerID:         buyerID,
			ListingID:       uuid.MustParse(req.ListingID),
			PaymentIntentID: req.PaymentIntentID,
			ShipTo:          req.ShipTo,
			Parcel:          req.Parcel,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
