package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) NotifyAdmin(text string) error {
	f.messages = append(f.messages, text)
	return nil
}

type fakeRefresher struct {
	refreshed []string
}

func (f *fakeRefresher) RefreshEvent(ctx context.Context, eventID string) error {
	f.refreshed = append(f.refreshed, eventID)
	return nil
}

func TestHandleTask_PurchaseNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	handler := NewTaskHandler(notifier, nil)

	task := &Task{
		ID:   "t1",
		Type: TaskTypePurchaseNotification,
		Data: map[string]interface{}{
			"ticket_number": "ASTRA-MF3K2V1X-A7Q9ZC",
			"event_title":   "Symphony Under the Stars",
			"category_name": "VIP",
			"quantity":      2,
			"total_price":   "300.00",
		},
	}

	require.NoError(t, handler.HandleTask(task))
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "ASTRA-MF3K2V1X-A7Q9ZC")
	assert.Contains(t, notifier.messages[0], "Symphony Under the Stars")
}

func TestHandleTask_RefreshAvailability(t *testing.T) {
	refresher := &fakeRefresher{}
	handler := NewTaskHandler(nil, refresher)

	task := &Task{
		ID:   "t2",
		Type: TaskTypeRefreshAvailability,
		Data: map[string]interface{}{"event_id": "e1"},
	}

	require.NoError(t, handler.HandleTask(task))
	assert.Equal(t, []string{"e1"}, refresher.refreshed)
}

func TestHandleTask_StatsReportRequiresText(t *testing.T) {
	handler := NewTaskHandler(&fakeNotifier{}, nil)

	task := &Task{ID: "t3", Type: TaskTypeStatsReport, Data: map[string]interface{}{}}

	err := handler.HandleTask(task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid stats report")
}

func TestHandleTask_UnknownType(t *testing.T) {
	handler := NewTaskHandler(&fakeNotifier{}, nil)

	err := handler.HandleTask(&Task{ID: "t4", Type: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task type")
}

// Без настроенного нотификатора уведомления тихо пропускаются
func TestHandleTask_NilNotifier(t *testing.T) {
	handler := NewTaskHandler(nil, nil)

	task := &Task{
		ID:   "t5",
		Type: TaskTypeCancelNotification,
		Data: map[string]interface{}{"ticket_number": "X", "quantity": 1},
	}

	assert.NoError(t, handler.HandleTask(task))
}
