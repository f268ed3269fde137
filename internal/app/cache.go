package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"slots-service/internal/slots"
)

const cacheKeyPrefix = "slots:v1"

func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// SlotCache stores whole resolutions in Redis for a short TTL.
type SlotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSlotCache(rdb *redis.Client, ttl time.Duration) *SlotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SlotCache{rdb: rdb, ttl: ttl}
}

func (c *SlotCache) Get(ctx context.Context, key string) (*slots.Resolution, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var res slots.Resolution
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &res, true, nil
}

func (c *SlotCache) Set(ctx context.Context, key string, res *slots.Resolution) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *SlotCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// CacheKey identifies a request. An empty anchor is pinned to today so a
// cached "from today" answer is not served after midnight.
func CacheKey(req slots.Request, today slots.DayKey, defaultDays int) string {
	anchor := strings.TrimSpace(req.Anchor)
	if anchor == "" {
		anchor = string(today)
	}
	days := req.Days
	if days <= 0 {
		days = defaultDays
	}
	return strings.Join([]string{
		cacheKeyPrefix,
		strings.TrimSpace(req.CalendarID),
		strings.TrimSpace(req.StaffID),
		anchor,
		strconv.Itoa(days),
	}, ":")
}
