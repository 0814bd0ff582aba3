// Package gateway wraps the external payment provider. The ledger only
// sees the PaymentGateway interface: it records the returned references on
// pending entries and learns the outcome later through webhooks.
package gateway

import (
	"context"
	"errors"
)

// ErrGatewayUnavailable wraps provider failures and timeouts.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// PaymentIntent references an initiated inbound payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Payout references an initiated outbound payment.
type Payout struct {
	ID     string
	Status string
}

// PaymentGateway is the provider-facing boundary for gateway-settled
// deposits and withdrawals.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*PaymentIntent, error)
	CreatePayout(ctx context.Context, amount float64, currency, destination string) (*Payout, error)
	GetPaymentStatus(ctx context.Context, intentID string) (string, error)
}
