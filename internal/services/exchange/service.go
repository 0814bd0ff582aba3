// Package exchange resolves conversion rates between currency pairs with a
// time-bounded cache in front of a pluggable upstream source.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"streampay/internal/repositories"
)

// Service caches quotes from a RateSource. Identity pairs short-circuit to
// rate 1.0 without touching the cache or the upstream.
type Service struct {
	source  RateSource
	cache   repositories.CacheRepository
	ttl     time.Duration
	timeout time.Duration
}

// NewService creates a rate provider backed by source, caching quotes in
// cache for the standard TTL.
func NewService(source RateSource, cache repositories.CacheRepository) *Service {
	if source == nil {
		panic("rate source is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	return &Service{
		source:  source,
		cache:   cache,
		ttl:     RateCacheTTL,
		timeout: 10 * time.Second,
	}
}

// GetRate returns the conversion rate from one currency to another.
// Upstream failures surface as ErrRateUnavailable, never a default rate.
func (s *Service) GetRate(ctx context.Context, from, to string) (float64, error) {
	if from == "" || to == "" {
		return 0, ErrUnsupportedCurrency
	}
	if from == to {
		return 1.0, nil
	}

	key := rateCachePrefix + from + ":" + to
	var cached Quote
	if err := s.cache.Get(ctx, key, &cached); err == nil && cached.Rate > 0 {
		return cached.Rate, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	quote, err := s.source.FetchRate(fetchCtx, from, to)
	if err != nil {
		if errors.Is(err, ErrUnsupportedCurrency) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if quote.Rate <= 0 {
		return 0, fmt.Errorf("%w: non-positive rate %v for %s/%s", ErrRateUnavailable, quote.Rate, from, to)
	}

	if err := s.cache.Set(ctx, key, quote, s.ttl); err != nil {
		log.Printf("failed to cache rate %s: %v", key, err)
	}

	return quote.Rate, nil
}

// Convert applies the current rate to amount and reports the rate used so
// callers can snapshot it.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (Conversion, error) {
	rate, err := s.GetRate(ctx, from, to)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{Amount: amount * rate, Rate: rate}, nil
}
