package exchange

import (
	"context"
	"time"
)

// Quote is one rate observation from an upstream source.
type Quote struct {
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// RateSource fetches fresh rates from an upstream provider. Implementations
// must respect ctx cancellation and return ErrUnsupportedCurrency for codes
// they do not quote.
type RateSource interface {
	FetchRate(ctx context.Context, from, to string) (Quote, error)
}

// Conversion is the result of converting an amount between currencies. Rate
// is the snapshot actually applied, so callers can persist it for audit.
type Conversion struct {
	Amount float64 `json:"amount"`
	Rate   float64 `json:"rate"`
}

// Cache duration and key layout for rate lookups.
const (
	RateCacheTTL    = 5 * time.Minute
	rateCachePrefix = "fx:"
)
