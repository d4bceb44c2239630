package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gstbill/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type CacheService interface {
	// Coupon caching, keyed by upper-cased code. Entries are dropped on any
	// coupon mutation so validation never sees a stale used_count.
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	SetCoupon(ctx context.Context, coupon *models.Coupon, ttl time.Duration) error
	DeleteCoupon(ctx context.Context, code string) error

	// Product caching
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product, ttl time.Duration) error
	DeleteProduct(ctx context.Context, productID uuid.UUID) error

	// Rendered invoice documents (object storage URLs)
	GetInvoiceDocumentURL(ctx context.Context, invoiceID uuid.UUID) (string, error)
	SetInvoiceDocumentURL(ctx context.Context, invoiceID uuid.UUID, url string, ttl time.Duration) error
	DeleteInvoiceDocumentURL(ctx context.Context, invoiceID uuid.UUID) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	InvalidateAllCache(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Warn().Err(pingErr).Str("addr", parsedAddr).Msg("redis ping failed on initialization")
	}

	return &redisCacheService{client: client}
}

func couponKey(code string) string {
	return fmt.Sprintf("gstbill:coupon:%s", strings.ToUpper(code))
}

func (r *redisCacheService) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	data, err := r.client.Get(ctx, couponKey(code)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var coupon models.Coupon
	if err := json.Unmarshal(data, &coupon); err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *redisCacheService) SetCoupon(ctx context.Context, coupon *models.Coupon, ttl time.Duration) error {
	data, err := json.Marshal(coupon)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, couponKey(coupon.Code), data, ttl).Err()
}

func (r *redisCacheService) DeleteCoupon(ctx context.Context, code string) error {
	return r.client.Del(ctx, couponKey(code)).Err()
}

func (r *redisCacheService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	key := fmt.Sprintf("gstbill:product:%s", productID.String())
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *redisCacheService) SetProduct(ctx context.Context, product *models.Product, ttl time.Duration) error {
	key := fmt.Sprintf("gstbill:product:%s", product.ID.String())
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	key := fmt.Sprintf("gstbill:product:%s", productID.String())
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetInvoiceDocumentURL(ctx context.Context, invoiceID uuid.UUID) (string, error) {
	key := fmt.Sprintf("gstbill:invoice-doc:%s", invoiceID.String())
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) SetInvoiceDocumentURL(ctx context.Context, invoiceID uuid.UUID, url string, ttl time.Duration) error {
	key := fmt.Sprintf("gstbill:invoice-doc:%s", invoiceID.String())
	return r.client.Set(ctx, key, url, ttl).Err()
}

func (r *redisCacheService) DeleteInvoiceDocumentURL(ctx context.Context, invoiceID uuid.UUID) error {
	key := fmt.Sprintf("gstbill:invoice-doc:%s", invoiceID.String())
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("gstbill:ratelimit:%s", key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first request
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) InvalidateAllCache(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, "gstbill:*").Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}
