package worker

import (
	"context"
	"time"

	"github.com/jsquare/astra-tickets/internal/service"

	"github.com/sirupsen/logrus"
)

// CacheRefreshWorker периодически обновляет снимки доступности мест
// активных мероприятий, чтобы кеш не расходился с базой надолго
type CacheRefreshWorker struct {
	eventService service.EventService
	interval     time.Duration
}

func NewCacheRefreshWorker(eventService service.EventService, interval time.Duration) *CacheRefreshWorker {
	return &CacheRefreshWorker{
		eventService: eventService,
		interval:     interval,
	}
}

func (w *CacheRefreshWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Availability cache refresh worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Availability cache refresh worker stopped")
			return
		case <-ticker.C:
			w.refreshActiveEvents(ctx)
		}
	}
}

// refreshActiveEvents перечитывает остатки мест всех активных мероприятий
func (w *CacheRefreshWorker) refreshActiveEvents(ctx context.Context) {
	events, err := w.eventService.GetAllEvents(ctx, true)
	if err != nil {
		logrus.Errorf("Failed to list active events for cache refresh: %v", err)
		return
	}

	if len(events) == 0 {
		return
	}

	successCount := 0
	failedCount := 0

	for _, event := range events {
		select {
		case <-ctx.Done():
			logrus.Info("Cache refresh interrupted by context cancellation")
			return
		default:
		}

		if err := w.eventService.RefreshEvent(ctx, event.ID); err != nil {
			logrus.Errorf("Failed to refresh availability for event %s: %v", event.ID, err)
			failedCount++
			continue
		}
		successCount++
	}

	logrus.Debugf("Availability cache refresh completed: %d refreshed, %d failed",
		successCount, failedCount)

	if failedCount > 0 {
		logrus.Warnf("%d events failed to refresh during cache refresh", failedCount)
	}
}

// GetStats возвращает статистику работы воркера
func (w *CacheRefreshWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"worker_type": "cache_refresh",
		"interval":    w.interval.String(),
		"status":      "running",
	}
}
