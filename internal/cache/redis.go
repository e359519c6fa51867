package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
	"github.com/GG-IM/tiendas-mass-orders/internal/repository"
)

// CachedCatalog is a read-through cache in front of a CatalogReader. Payment
// and shipping methods are reference data the admin side rarely touches, so
// they live in redis on a short TTL. Users and products pass straight
// through: product stock must be fresh for the order validation pass.
type CachedCatalog struct {
	inner   repository.CatalogReader
	client  *redis.Client
	baseTTL time.Duration
}

func NewCachedCatalog(inner repository.CatalogReader, client *redis.Client) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

var _ repository.CatalogReader = (*CachedCatalog)(nil)

func (c *CachedCatalog) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return c.inner.GetUser(ctx, id)
}

func (c *CachedCatalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return c.inner.GetProduct(ctx, id)
}

func (c *CachedCatalog) GetPaymentMethod(ctx context.Context, id int64) (*domain.PaymentMethod, error) {
	var cached domain.PaymentMethod
	if err := c.get(ctx, paymentMethodKey(id), &cached); err == nil {
		return &cached, nil
	}

	method, err := c.inner.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, paymentMethodKey(id), method)
	return method, nil
}

func (c *CachedCatalog) GetShippingMethod(ctx context.Context, id int64) (*domain.ShippingMethod, error) {
	var cached domain.ShippingMethod
	if err := c.get(ctx, shippingMethodKey(id), &cached); err == nil {
		return &cached, nil
	}

	method, err := c.inner.GetShippingMethod(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, shippingMethodKey(id), method)
	return method, nil
}

func (c *CachedCatalog) GetDefaultShippingMethod(ctx context.Context) (*domain.ShippingMethod, error) {
	var cached domain.ShippingMethod
	if err := c.get(ctx, defaultShippingMethodKey, &cached); err == nil {
		return &cached, nil
	}

	method, err := c.inner.GetDefaultShippingMethod(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, defaultShippingMethodKey, method)
	return method, nil
}

func (c *CachedCatalog) get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		// A broken cache degrades to plain lookups.
		log.Printf("redis get %s failed: %v", key, err)
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return nil
}

func (c *CachedCatalog) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("marshal for cache key %s failed: %v", key, err)
		return
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := c.client.Set(ctx, key, data, c.baseTTL+jitter).Err(); err != nil {
		log.Printf("redis set %s failed: %v", key, err)
	}
}
