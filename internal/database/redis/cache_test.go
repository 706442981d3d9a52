package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsquare/astra-tickets/internal/entity"
)

func testSnapshot() []*entity.CategoryAvailability {
	return []*entity.CategoryAvailability{
		{
			CategoryID:     "c1",
			Name:           "VIP",
			Price:          decimal.NewFromInt(150),
			TotalSeats:     50,
			AvailableSeats: 10,
		},
		{
			CategoryID:     "c2",
			Name:           "Standard",
			Price:          decimal.NewFromInt(60),
			TotalSeats:     200,
			AvailableSeats: 0,
			SoldOut:        true,
		},
	}
}

func TestAvailabilityCache_SetAndGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewAvailabilityCache(client, time.Minute)
	ctx := context.Background()

	snapshot := testSnapshot()
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)

	mock.ExpectSet("availability:e1", data, time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(ctx, "e1", snapshot))

	mock.ExpectGet("availability:e1").SetVal(string(data))
	got, err := cache.Get(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].CategoryID)
	assert.Equal(t, 10, got[0].AvailableSeats)
	assert.True(t, got[1].SoldOut)
	assert.True(t, got[0].Price.Equal(decimal.NewFromInt(150)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityCache_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewAvailabilityCache(client, time.Minute)

	mock.ExpectGet("availability:missing").RedisNil()

	_, err := cache.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, redis.Nil)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityCache_Invalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewAvailabilityCache(client, time.Minute)

	mock.ExpectDel("availability:e1").SetVal(1)

	require.NoError(t, cache.Invalidate(context.Background(), "e1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityCache_PopularEvents(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewAvailabilityCache(client, time.Minute)
	ctx := context.Background()

	mock.ExpectZIncrBy("popular_events", 1, "e1").SetVal(1)
	require.NoError(t, cache.TrackPopularEvent(ctx, "e1"))

	mock.ExpectZRevRange("popular_events", 0, 4).SetVal([]string{"e1"})
	events, err := cache.GetPopularEvents(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, events)

	require.NoError(t, mock.ExpectationsWereMet())
}
