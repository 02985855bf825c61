// Package cache is a thin redis layer over the product catalog. It is
// strictly a read-through cache: every admin write invalidates, and a
// missing or unreachable redis degrades to direct DB reads.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const productTTL = 60 * time.Second

// Cache wraps the redis client. The zero value (nil client) disables
// caching entirely, which is what tests and redis-less deployments get.
type Cache struct {
	client *redis.Client
}

// New connects to redis. An empty addr returns a disabled cache.
func New(addr, password string) *Cache {
	if addr == "" {
		return &Cache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Printf("Redis unavailable, product caching disabled: %v", err)
		return &Cache{}
	}

	log.Println("Redis connected")
	return &Cache{client: client}
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// GetJSON loads key into v. Returns false on miss, disabled cache, or any
// redis/decode error.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// SetJSON stores v under key with the product TTL. Errors are dropped; the
// cache is never load-bearing.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, productTTL)
}

// InvalidateProducts drops every cached product entry. Called on any admin
// catalog write and on order placement (stock changed).
func (c *Cache) InvalidateProducts(ctx context.Context) {
	if c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, "product:*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}
