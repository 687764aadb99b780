package stripewebhook

import (
	"errors"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
)

// Verifier checks webhook signatures against the environment's signing
// secrets. Production deployments carry exactly one secret; development
// deployments may additionally accept a CLI-issued dev secret.
type Verifier struct {
	production bool
	secret     string
	devSecret  string
}

// NewVerifier builds a verifier. The dev secret is discarded outright in
// production so a misconfigured deployment cannot widen its trust.
func NewVerifier(production bool, signingSecret, devSigningSecret string) (*Verifier, error) {
	if signingSecret == "" {
		return nil, errors.New("signing secret is required")
	}
	if production {
		devSigningSecret = ""
	}
	return &Verifier{
		production: production,
		secret:     signingSecret,
		devSecret:  devSigningSecret,
	}, nil
}

// Verify validates the signature header and returns the parsed event. The
// primary secret is tried first; the dev secret only outside production.
// Events are accepted regardless of their api_version: accounts are not
// required to pin to the SDK's version, and rejecting them here would make
// the sender retry an error it can never fix.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (stripe.Event, error) {
	opts := webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, opts)
	if err == nil {
		return event, nil
	}

	if !v.production && v.devSecret != "" {
		if devEvent, devErr := webhook.ConstructEventWithOptions(payload, signatureHeader, v.devSecret, opts); devErr == nil {
			return devEvent, nil
		}
	}

	return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "webhook signature rejected")
}
