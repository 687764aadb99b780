package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jordanvales/threadswap-backend/api/middleware"
	"github.com/jordanvales/threadswap-backend/api/responses"
	"github.com/jordanvales/threadswap-backend/api/validators"
	"github.com/jordanvales/threadswap-backend/internal/payments"
	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
)

type createPaymentIntentRequest struct {
	ListingID     string `json:"listing_id" validate:"required,uuid"`
	SellerID      string `json:"seller_id" validate:"required,uuid"`
	AmountCents   int64  `json:"amount_cents" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"required,len=3"`
	StripeVersion string `json:"stripe_version,omitempty" validate:"omitempty,max=32"`
}

// CreatePaymentIntent prepares a payment sheet for the authenticated buyer.
func CreatePaymentIntent(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		buyerID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req createPaymentIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.CreateIntent(ctx, payments.CreateIntentInput{
			BuyerID:       buyerID,
			ListingID:     uuid.MustParse(req.ListingID),
			SellerID:      uuid.MustParse(req.SellerID),
			AmountCents:   req.AmountCents,
			Currency:      req.Currency,
			StripeVersion: req.StripeVersion,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
