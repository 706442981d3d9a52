package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldRetry_ExhaustedAttempts(t *testing.T) {
	rm := NewRetryManager(3, time.Second)

	task := &Task{ID: "t1", Type: TaskTypePurchaseNotification, Attempts: 3, MaxRetries: 3}

	retry, _ := rm.ShouldRetry(task, errors.New("connection refused"))
	assert.False(t, retry)
}

func TestShouldRetry_NonRetryableErrors(t *testing.T) {
	rm := NewRetryManager(3, time.Second)
	task := &Task{ID: "t1", Type: TaskTypePurchaseNotification, Attempts: 0, MaxRetries: 3}

	tests := []struct {
		name string
		err  error
	}{
		{name: "invalid task", err: errors.New("invalid task type: bogus")},
		{name: "missing reference", err: errors.New("event not found")},
		{name: "notifier disabled", err: errors.New("admin chat id is not configured")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retry, _ := rm.ShouldRetry(task, tt.err)
			assert.False(t, retry)
		})
	}
}

func TestShouldRetry_RetryableError(t *testing.T) {
	rm := NewRetryManager(3, time.Second)
	task := &Task{ID: "t1", Type: TaskTypePurchaseNotification, Attempts: 1, MaxRetries: 3}

	retry, delay := rm.ShouldRetry(task, errors.New("connection timeout"))
	assert.True(t, retry)
	assert.Greater(t, delay, time.Duration(0))
}

func TestCalculateBackoff_GrowsAndCaps(t *testing.T) {
	rm := NewRetryManager(10, time.Second)

	first := rm.calculateBackoff(0)
	assert.Equal(t, time.Second, first)

	// С учётом джиттера проверяем только границы
	for attempt := 1; attempt <= 10; attempt++ {
		delay := rm.calculateBackoff(attempt)
		assert.Greater(t, delay, time.Duration(0), "attempt %d", attempt)
		assert.LessOrEqual(t, delay, 16*time.Second, "attempt %d", attempt)
	}
}

func TestCalculateBackoff_TinyBaseDelay(t *testing.T) {
	rm := NewRetryManager(3, time.Nanosecond)

	// Наносекундная база даёт нулевое окно джиттера, паники быть не должно
	for attempt := 0; attempt <= 5; attempt++ {
		assert.NotPanics(t, func() {
			delay := rm.calculateBackoff(attempt)
			assert.GreaterOrEqual(t, delay, time.Duration(0), "attempt %d", attempt)
		}, "attempt %d", attempt)
	}
}

func TestExecuteTaskWithRetry_SubMillisecondDelay(t *testing.T) {
	q := &RedisQueue{retryManager: NewRetryManager(3, time.Nanosecond)}
	task := &Task{ID: "t1", Type: TaskTypePurchaseNotification, MaxRetries: 2}

	calls := 0
	err := q.executeTaskWithRetry(context.Background(), task, func(*Task) error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
