package gateway

import (
	"context"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
	"github.com/stripe/stripe-go/v72/payout"
)

// StripeGateway implements PaymentGateway against Stripe.
type StripeGateway struct{}

// NewStripeGateway configures the global Stripe client key and returns the
// gateway.
func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

// toMinorUnits converts a decimal amount to the integer minor units Stripe
// expects.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (g *StripeGateway) CreatePayout(ctx context.Context, amount float64, currency, destination string) (*Payout, error) {
	params := &stripe.PayoutParams{
		Amount:      stripe.Int64(toMinorUnits(amount)),
		Currency:    stripe.String(currency),
		Destination: stripe.String(destination),
	}
	params.Context = ctx

	po, err := payout.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return &Payout{ID: po.ID, Status: string(po.Status)}, nil
}

func (g *StripeGateway) GetPaymentStatus(ctx context.Context, intentID string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return string(pi.Status), nil
}
