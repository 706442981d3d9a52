package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier отправляет готовые сообщения администраторам
type Notifier interface {
	NotifyAdmin(text string) error
}

// AvailabilityRefresher обновляет снимок доступности мест в кеше
type AvailabilityRefresher interface {
	RefreshEvent(ctx context.Context, eventID string) error
}

// TaskHandler диспетчеризует задачи очереди по их типу
type TaskHandler struct {
	notifier  Notifier
	refresher AvailabilityRefresher
}

func NewTaskHandler(notifier Notifier, refresher AvailabilityRefresher) *TaskHandler {
	return &TaskHandler{
		notifier:  notifier,
		refresher: refresher,
	}
}

// HandleTask выполняет одну задачу; ошибка означает повтор по политике RetryManager
func (h *TaskHandler) HandleTask(task *Task) error {
	switch task.Type {
	case TaskTypePurchaseNotification:
		return h.handlePurchaseNotification(task)
	case TaskTypeCancelNotification:
		return h.handleCancelNotification(task)
	case TaskTypeStatsReport:
		return h.handleStatsReport(task)
	case TaskTypeRefreshAvailability:
		return h.handleRefreshAvailability(task)
	default:
		return fmt.Errorf("invalid task type: %s", task.Type)
	}
}

func (h *TaskHandler) handlePurchaseNotification(task *Task) error {
	if h.notifier == nil {
		logrus.Debug("Notifier not configured, skipping purchase notification")
		return nil
	}

	message := fmt.Sprintf(
		"🎫 Новая покупка\n\n"+
			"Мероприятие: %s\n"+
			"Категория: %s\n"+
			"Количество мест: %d\n"+
			"Номер билета: %s\n"+
			"Сумма: %s",
		task.GetString("event_title"),
		task.GetString("category_name"),
		task.GetInt("quantity"),
		task.GetString("ticket_number"),
		task.GetString("total_price"),
	)

	return h.notifier.NotifyAdmin(message)
}

func (h *TaskHandler) handleCancelNotification(task *Task) error {
	if h.notifier == nil {
		return nil
	}

	message := fmt.Sprintf(
		"❌ Билет отменён\n\n"+
			"Номер билета: %s\n"+
			"Возвращено мест: %d",
		task.GetString("ticket_number"),
		task.GetInt("quantity"),
	)

	return h.notifier.NotifyAdmin(message)
}

func (h *TaskHandler) handleStatsReport(task *Task) error {
	if h.notifier == nil {
		return nil
	}

	text := task.GetString("text")
	if text == "" {
		return fmt.Errorf("invalid stats report task: empty text")
	}

	return h.notifier.NotifyAdmin(text)
}

func (h *TaskHandler) handleRefreshAvailability(task *Task) error {
	if h.refresher == nil {
		return nil
	}

	eventID := task.GetString("event_id")
	if eventID == "" {
		return fmt.Errorf("invalid refresh task: empty event_id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return h.refresher.RefreshEvent(ctx, eventID)
}
