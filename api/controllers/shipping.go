package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/api/middleware"
	"github.com/jordanvales/threadswap-backend/api/responses"
	"github.com/jordanvales/threadswap-backend/api/validators"
	"github.com/jordanvales/threadswap-backend/internal/shipping"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/types"
)

type getShippingRatesRequest struct {
	To        types.Address  `json:"to" validate:"required"`
	From      *types.Address `json:"from,omitempty"`
	ListingID string         `json:"listing_id,omitempty" validate:"omitempty,uuid"`
	Parcel    *types.Parcel  `json:"parcel,omitempty"`
}

// GetShippingRates quotes carrier rates for a destination. The origin is an
// explicit address or the seller behind a listing.
func GetShippingRates(svc *shipping.QuoteService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req getShippingRatesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		in := shipping.GetRatesInput{
			To:     req.To,
			From:   req.From,
			Parcel: req.Parcel,
		}
		if req.ListingID != "" {
			listingID := uuid.MustParse(req.ListingID)
			in.ListingID = &listingID
		}

		quote, err := svc.GetRates(ctx, in)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}

type purchaseShippingLabelRequest struct {
	ShipmentID string `json:"shipment_id" validate:"required"`
	RateID     string `json:"rate_id" validate:"required"`
}

// PurchaseShippingLabel buys a label for a previously quoted rate.
func PurchaseShippingLabel(svc *shipping.LabelService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req purchaseShippingLabelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		label, err := svc.Purchase(ctx, shipping.PurchaseInput{
			UserID:     userID,
			ShipmentID: req.ShipmentID,
			RateID:     req.RateID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, label)
	}
}
