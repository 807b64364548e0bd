// Package payment creates card payment intents with Stripe.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"github.com/bitelog/bitelog-api/internal/config"
)

// Gateway creates a payment for an amount in the currency's minor unit and
// returns the client secret used to confirm it. VerifyIntent reports the
// provider's state of a payment the client claims to have completed.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64) (string, error)
	VerifyIntent(ctx context.Context, intentID string) (*Verification, error)
}

// StatusSucceeded is the status of a completed payment.
const StatusSucceeded = string(stripe.PaymentIntentStatusSucceeded)

// ErrUnknownIntent is returned when the provider has no payment with the given id.
var ErrUnknownIntent = errors.New("unknown payment intent")

// Verification is the provider's view of a payment.
type Verification struct {
	ID          string
	Status      string
	AmountCents int64
	Currency    string
}

// Succeeded reports whether the payment was captured.
func (v *Verification) Succeeded() bool {
	return v.Status == StatusSucceeded
}

// StripeGateway implements Gateway with the Stripe PaymentIntents API.
type StripeGateway struct {
	api      *client.API
	currency string
}

// NewStripeGateway creates a gateway for the configured secret key.
func NewStripeGateway(cfg *config.PaymentConfig) *StripeGateway {
	return NewStripeGatewayWithBackends(cfg, nil)
}

// NewStripeGatewayWithBackends creates a gateway talking to custom backends.
func NewStripeGatewayWithBackends(cfg *config.PaymentConfig, backends *stripe.Backends) *StripeGateway {
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{
		api:      client.New(cfg.StripeSecretKey, backends),
		currency: currency,
	}
}

// CreateIntent creates a card PaymentIntent and returns its client secret.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("payment amount must be positive, got %d", amountCents)
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountCents),
		Currency:           stripe.String(g.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intent.ClientSecret, nil
}

// VerifyIntent retrieves a PaymentIntent by id.
func (g *StripeGateway) VerifyIntent(ctx context.Context, intentID string) (*Verification, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, fmt.Errorf("%w: %s", ErrUnknownIntent, intentID)
		}
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", intentID, err)
	}
	return &Verification{
		ID:          intent.ID,
		Status:      string(intent.Status),
		AmountCents: intent.Amount,
		Currency:    string(intent.Currency),
	}, nil
}
