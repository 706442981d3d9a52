package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	purchaseAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_purchase_attempts_total",
			Help: "Total ticket purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	purchaseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticket_purchase_duration_seconds",
			Help:    "Duration of the purchase transaction",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	ticketNumberRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_number_collisions_total",
			Help: "Total transaction retries caused by ticket number collisions",
		},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "task_queue_depth",
			Help: "Current task queue depth per queue type",
		},
		[]string{"queue_type"},
	)
)

// Purchase outcomes used as label values.
const (
	OutcomeSuccess         = "success"
	OutcomeNotEnoughSeats  = "not_enough_seats"
	OutcomeInvalidQuantity = "invalid_quantity"
	OutcomeNotFound        = "not_found"
	OutcomeError           = "error"
)

type Monitor struct {
	redis     *redis.Client
	queueKeys map[string]string
}

// NewMonitor returns a monitor for purchase metrics. With a non-nil
// redis client it also starts a background collector that samples
// queue depth; queueKeys maps queue_type label to the redis key.
// Purchase counters work without redis.
func NewMonitor(redisClient *redis.Client, queueKeys map[string]string) *Monitor {
	monitor := &Monitor{
		redis:     redisClient,
		queueKeys: queueKeys,
	}

	if redisClient != nil && len(queueKeys) > 0 {
		go monitor.collectMetrics()
	}

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		m.collectQueueMetrics(ctx)
	}
}

func (m *Monitor) collectQueueMetrics(ctx context.Context) {
	for queueType, key := range m.queueKeys {
		length, err := m.redis.LLen(ctx, key).Result()
		if err != nil {
			continue
		}
		queueDepth.WithLabelValues(queueType).Set(float64(length))
	}
}

// TrackPurchase records one purchase attempt with its outcome and duration.
func (m *Monitor) TrackPurchase(outcome string, duration time.Duration) {
	purchaseAttempts.WithLabelValues(outcome).Inc()
	purchaseDuration.Observe(duration.Seconds())
}

// TrackTicketNumberRetry records a retried transaction after a number collision.
func (m *Monitor) TrackTicketNumberRetry() {
	ticketNumberRetries.Inc()
}
