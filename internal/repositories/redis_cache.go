package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"streampay/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisCacheRepository struct {
	client *redis.Client
}

func NewRedisCacheRepository(client *redis.Client) CacheRepository {
	return &RedisCacheRepository{client: client}
}

func (r *RedisCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (r *RedisCacheRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisCacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCacheRepository) GetFloat64(ctx context.Context, key string) (float64, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, err
	}
	return strconv.ParseFloat(val, 64)
}

func (r *RedisCacheRepository) SetFloat64(ctx context.Context, key string, value float64, expiration time.Duration) error {
	return r.client.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64), expiration).Err()
}

func walletCacheKey(walletID uint) string {
	return fmt.Sprintf("wallet:%d", walletID)
}

func (r *RedisCacheRepository) GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.Get(ctx, walletCacheKey(walletID), &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *RedisCacheRepository) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	return r.Set(ctx, walletCacheKey(wallet.ID), wallet, DefaultExpiration)
}

func (r *RedisCacheRepository) DeleteWallet(ctx context.Context, walletID uint) error {
	return r.Delete(ctx, walletCacheKey(walletID))
}
