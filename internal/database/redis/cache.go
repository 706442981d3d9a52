package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jsquare/astra-tickets/internal/entity"
)

const availabilityKeyPrefix = "availability:"

// AvailabilityCache хранит снимки доступности мест для страниц
// мероприятий. Снимок не авторитетен: покупка всегда проверяет
// остаток в транзакции, кеш только разгружает чтения.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *AvailabilityCache) Set(ctx context.Context, eventID string, availability []*entity.CategoryAvailability) error {
	data, err := json.Marshal(availability)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, availabilityKeyPrefix+eventID, data, c.ttl).Err()
}

// Get returns redis.Nil as error on a cache miss
func (c *AvailabilityCache) Get(ctx context.Context, eventID string) ([]*entity.CategoryAvailability, error) {
	data, err := c.client.Get(ctx, availabilityKeyPrefix+eventID).Result()
	if err != nil {
		return nil, err
	}

	var availability []*entity.CategoryAvailability
	err = json.Unmarshal([]byte(data), &availability)
	if err != nil {
		return nil, err
	}

	return availability, nil
}

// Invalidate drops the snapshot after a purchase or cancellation so the
// next read repopulates it from the database
func (c *AvailabilityCache) Invalidate(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, availabilityKeyPrefix+eventID).Err()
}

func (c *AvailabilityCache) TrackPopularEvent(ctx context.Context, eventID string) error {
	return c.client.ZIncrBy(ctx, "popular_events", 1, eventID).Err()
}

func (c *AvailabilityCache) GetPopularEvents(ctx context.Context, count int) ([]string, error) {
	return c.client.ZRevRange(ctx, "popular_events", 0, int64(count-1)).Result()
}
