package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CalendarCache stores rendered month calendars. Every resource has a
// version that Invalidate bumps. Get reports the version it looked under and
// Set only fills that version, so a month read from storage before a write
// can never be served after the write's invalidation. A miss returns
// ok=false with a nil error.
type CalendarCache interface {
	Get(ctx context.Context, resourceKey string, year, month int) (days map[string]string, version int64, ok bool, err error)
	Set(ctx context.Context, resourceKey string, year, month int, version int64, days map[string]string) error
	Invalidate(ctx context.Context, resourceKey string, months [][2]int) error
}

func calendarCacheKey(resourceKey string, year, month int) string {
	return fmt.Sprintf("calendar:%s:%04d-%02d", resourceKey, year, month)
}

func versionedCalendarKey(resourceKey string, version int64, year, month int) string {
	return fmt.Sprintf("%s:v%d", calendarCacheKey(resourceKey, year, month), version)
}

func calendarVersionKey(resourceKey string) string {
	return "calendar-version:" + resourceKey
}

type redisCalendarCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCalendarCache(client *redis.Client, ttl time.Duration) CalendarCache {
	return &redisCalendarCache{client: client, ttl: ttl}
}

func (c *redisCalendarCache) Get(ctx context.Context, resourceKey string, year, month int) (map[string]string, int64, bool, error) {
	version, err := c.client.Get(ctx, calendarVersionKey(resourceKey)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("failed to read calendar version: %w", err)
	}

	raw, err := c.client.Get(ctx, versionedCalendarKey(resourceKey, version, year, month)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, version, false, fmt.Errorf("failed to read calendar cache: %w", err)
	}

	var days map[string]string
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, version, false, fmt.Errorf("failed to decode cached calendar: %w", err)
	}
	return days, version, true, nil
}

// Set writes under the version the caller read. A fill that lost the race
// with Invalidate lands on a retired version nobody reads and expires.
func (c *redisCalendarCache) Set(ctx context.Context, resourceKey string, year, month int, version int64, days map[string]string) error {
	raw, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	if err := c.client.Set(ctx, versionedCalendarKey(resourceKey, version, year, month), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write calendar cache: %w", err)
	}
	return nil
}

func (c *redisCalendarCache) Invalidate(ctx context.Context, resourceKey string, months [][2]int) error {
	if len(months) == 0 {
		return nil
	}
	version, err := c.client.Incr(ctx, calendarVersionKey(resourceKey)).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate calendar cache: %w", err)
	}

	// Months under the retired version would expire anyway; drop them early.
	keys := make([]string, 0, len(months))
	for _, ym := range months {
		keys = append(keys, versionedCalendarKey(resourceKey, version-1, ym[0], ym[1]))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to drop retired calendar months: %w", err)
	}
	return nil
}

type noopCalendarCache struct{}

// NoopCalendarCache is used when Redis is not configured.
func NoopCalendarCache() CalendarCache {
	return noopCalendarCache{}
}

func (noopCalendarCache) Get(context.Context, string, int, int) (map[string]string, int64, bool, error) {
	return nil, 0, false, nil
}

func (noopCalendarCache) Set(context.Context, string, int, int, int64, map[string]string) error {
	return nil
}

func (noopCalendarCache) Invalidate(context.Context, string, [][2]int) error {
	return nil
}
