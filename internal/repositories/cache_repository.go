package repositories

import (
	"context"
	"errors"
	"time"

	"streampay/internal/models"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for cache operations
type CacheRepository interface {
	// Generic operations
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// Type-specific operations
	GetFloat64(ctx context.Context, key string) (float64, error)
	SetFloat64(ctx context.Context, key string, value float64, expiration time.Duration) error

	// Wallet-specific operations
	GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	DeleteWallet(ctx context.Context, walletID uint) error
}

// Default cache expiration time
const DefaultExpiration = 24 * time.Hour
