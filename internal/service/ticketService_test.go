package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsquare/astra-tickets/config"
	"github.com/jsquare/astra-tickets/internal/entity"
)

const (
	testEventID    = "11111111-1111-1111-1111-111111111111"
	testCategoryID = "22222222-2222-2222-2222-222222222222"
	testUserID     = "user-1"
)

// fakeTicketRepo воспроизводит транзакционную семантику покупки:
// проверка остатка, декремент и вставка либо выполняются целиком
// под мьютексом, либо не меняют состояние вовсе
type fakeTicketRepo struct {
	mu          sync.Mutex
	available   int
	failInsert  bool
	collideNext int
	tickets     []*entity.Ticket
	numbers     map[string]struct{}
}

func newFakeTicketRepo(available int) *fakeTicketRepo {
	return &fakeTicketRepo{
		available: available,
		numbers:   make(map[string]struct{}),
	}
}

func (f *fakeTicketRepo) Purchase(ctx context.Context, ticket *entity.Ticket) (*entity.PurchaseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.available < ticket.Quantity {
		return nil, entity.ErrNotEnoughSeats
	}

	// Сбой вставки откатывает транзакцию: декремент не сохраняется
	if f.failInsert {
		return nil, fmt.Errorf("failed to insert ticket: %w", entity.ErrDatabaseError)
	}
	if f.collideNext > 0 {
		f.collideNext--
		return nil, entity.ErrDuplicateTicketNumber
	}
	if _, ok := f.numbers[ticket.TicketNumber]; ok {
		return nil, entity.ErrDuplicateTicketNumber
	}

	f.available -= ticket.Quantity
	ticket.ID = fmt.Sprintf("ticket-%d", len(f.tickets)+1)
	ticket.UnitPrice = decimal.NewFromInt(100)
	ticket.TotalPrice = ticket.UnitPrice.Mul(decimal.NewFromInt(int64(ticket.Quantity)))
	ticket.PurchaseTime = time.Now()

	f.numbers[ticket.TicketNumber] = struct{}{}
	stored := *ticket
	f.tickets = append(f.tickets, &stored)

	return &entity.PurchaseResult{
		TicketID:          ticket.ID,
		TicketNumber:      ticket.TicketNumber,
		NewAvailableSeats: f.available,
	}, nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.ID == id {
			copy := *t
			return &copy, nil
		}
	}
	return nil, entity.ErrTicketNotFound
}

func (f *fakeTicketRepo) GetByNumber(ctx context.Context, number string) (*entity.TicketWithEvent, error) {
	return nil, entity.ErrTicketNotFound
}

func (f *fakeTicketRepo) GetByUserID(ctx context.Context, userID string) ([]*entity.TicketWithEvent, error) {
	return nil, nil
}

func (f *fakeTicketRepo) GetRecent(ctx context.Context, limit int) ([]*entity.TicketWithEvent, error) {
	return nil, nil
}

func (f *fakeTicketRepo) Cancel(ctx context.Context, id string) (*entity.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.ID == id {
			switch t.Status {
			case entity.TicketStatusUsed:
				return nil, entity.ErrTicketAlreadyUsed
			case entity.TicketStatusCancelled, entity.TicketStatusRefunded:
				return nil, entity.ErrInvalidTicketStatus
			}
			t.Status = entity.TicketStatusCancelled
			f.available += t.Quantity
			copy := *t
			return &copy, nil
		}
	}
	return nil, entity.ErrTicketNotFound
}

func (f *fakeTicketRepo) CheckIn(ctx context.Context, number string) (*entity.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.TicketNumber == number {
			if t.Status == entity.TicketStatusUsed {
				return nil, entity.ErrTicketAlreadyUsed
			}
			if t.Status != entity.TicketStatusConfirmed {
				return nil, entity.ErrInvalidTicketStatus
			}
			t.Status = entity.TicketStatusUsed
			copy := *t
			return &copy, nil
		}
	}
	return nil, entity.ErrTicketNotFound
}

func (f *fakeTicketRepo) GetDashboardStats(ctx context.Context) (*entity.DashboardStats, error) {
	return &entity.DashboardStats{TicketsByStatus: map[entity.TicketStatus]int64{}}, nil
}

func (f *fakeTicketRepo) GetCategorySales(ctx context.Context, eventID string) ([]*entity.CategorySalesStats, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ticketCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickets)
}

func (f *fakeTicketRepo) availableSeats() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

type fakeEventRepo struct {
	event *entity.Event
}

func (f *fakeEventRepo) Create(ctx context.Context, event *entity.Event) error { return nil }

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	if f.event == nil || f.event.ID != id {
		return nil, entity.ErrEventNotFound
	}
	copy := *f.event
	return &copy, nil
}

func (f *fakeEventRepo) GetBySlug(ctx context.Context, slug string) (*entity.Event, error) {
	return nil, entity.ErrEventNotFound
}

func (f *fakeEventRepo) GetAll(ctx context.Context, onlyActive bool) ([]*entity.Event, error) {
	return nil, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, event *entity.Event) error { return nil }
func (f *fakeEventRepo) Delete(ctx context.Context, id string) error           { return nil }

type fakeCategoryRepo struct {
	category *entity.TicketCategory
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category *entity.TicketCategory) error {
	return nil
}

func (f *fakeCategoryRepo) GetByID(ctx context.Context, id string) (*entity.TicketCategory, error) {
	if f.category == nil || f.category.ID != id {
		return nil, entity.ErrCategoryNotFound
	}
	copy := *f.category
	return &copy, nil
}

func (f *fakeCategoryRepo) GetByEventID(ctx context.Context, eventID string) ([]*entity.TicketCategory, error) {
	return nil, nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, category *entity.TicketCategory) error {
	return nil
}

func (f *fakeCategoryRepo) GetAvailability(ctx context.Context, eventID string) ([]*entity.CategoryAvailability, error) {
	return nil, nil
}

type recordingMetrics struct {
	purchases int32
	retries   int32
}

func (m *recordingMetrics) TrackPurchase(outcome string, duration time.Duration) {
	atomic.AddInt32(&m.purchases, 1)
}

func (m *recordingMetrics) TrackTicketNumberRetry() {
	atomic.AddInt32(&m.retries, 1)
}

func newTestService(ticketRepo *fakeTicketRepo, metrics Metrics) TicketService {
	return newTestServiceWithConfig(ticketRepo, metrics, config.TicketConfig{
		NumberPrefix:  "ASTRA",
		InsertRetries: 3,
		MaxQuantity:   10,
		QRBaseURL:     "https://api.qrserver.com/v1/create-qr-code/",
		TicketBaseURL: "https://jsquare.com/tickets/",
	})
}

func newTestServiceWithConfig(ticketRepo *fakeTicketRepo, metrics Metrics, cfg config.TicketConfig) TicketService {
	eventRepo := &fakeEventRepo{event: &entity.Event{
		ID:         testEventID,
		Title:      "Symphony Under the Stars",
		IsActive:   true,
		HasTickets: true,
		Date:       time.Now().Add(72 * time.Hour),
	}}
	categoryRepo := &fakeCategoryRepo{category: &entity.TicketCategory{
		ID:      testCategoryID,
		EventID: testEventID,
		Name:    "VIP",
		Price:   decimal.NewFromInt(100),
	}}

	return NewTicketService(ticketRepo, eventRepo, categoryRepo, nil, nil, metrics, cfg)
}

func purchaseReq(quantity int) *PurchaseTicketRequest {
	return &PurchaseTicketRequest{
		UserID:     testUserID,
		EventID:    testEventID,
		CategoryID: testCategoryID,
		Quantity:   quantity,
	}
}

func TestPurchaseTicket_QuantityValidation(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
	}{
		{name: "zero quantity", quantity: 0},
		{name: "negative quantity", quantity: -1},
		{name: "above configured limit", quantity: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeTicketRepo(100)
			svc := newTestService(repo, nil)

			_, err := svc.PurchaseTicket(context.Background(), purchaseReq(tt.quantity))

			require.ErrorIs(t, err, entity.ErrInvalidQuantity)
			// Невалидное количество отклоняется до обращения к базе
			assert.Equal(t, 0, repo.ticketCount())
			assert.Equal(t, 100, repo.availableSeats())
		})
	}
}

func TestPurchaseTicket_NoLimitWhenUnconfigured(t *testing.T) {
	repo := newFakeTicketRepo(100)
	svc := newTestServiceWithConfig(repo, nil, config.TicketConfig{
		NumberPrefix:  "ASTRA",
		InsertRetries: 3,
	})

	// Без лимита в конфиге любое количество в пределах остатка проходит
	result, err := svc.PurchaseTicket(context.Background(), purchaseReq(15))

	require.NoError(t, err)
	assert.Equal(t, 85, result.NewAvailableSeats)
	assert.Equal(t, 1, repo.ticketCount())
}

func TestPurchaseTicket_MissingUserID(t *testing.T) {
	repo := newFakeTicketRepo(100)
	svc := newTestService(repo, nil)

	req := purchaseReq(2)
	req.UserID = ""

	_, err := svc.PurchaseTicket(context.Background(), req)

	require.ErrorIs(t, err, entity.ErrInvalidInput)
	// Билет без владельца не создаётся, места не списываются
	assert.Equal(t, 0, repo.ticketCount())
	assert.Equal(t, 100, repo.availableSeats())
}

func TestPurchaseTicket_Success(t *testing.T) {
	repo := newFakeTicketRepo(10)
	svc := newTestService(repo, nil)

	result, err := svc.PurchaseTicket(context.Background(), purchaseReq(3))

	require.NoError(t, err)
	assert.NotEmpty(t, result.TicketID)
	assert.Contains(t, result.TicketNumber, "ASTRA-")
	assert.Equal(t, 7, result.NewAvailableSeats)
	assert.Equal(t, 1, repo.ticketCount())
}

func TestPurchaseTicket_ExactRemainingSeats(t *testing.T) {
	repo := newFakeTicketRepo(4)
	svc := newTestService(repo, nil)

	result, err := svc.PurchaseTicket(context.Background(), purchaseReq(4))

	require.NoError(t, err)
	assert.Equal(t, 0, result.NewAvailableSeats)

	// Следующая покупка должна получить отказ, а не уйти в минус
	_, err = svc.PurchaseTicket(context.Background(), purchaseReq(1))
	require.ErrorIs(t, err, entity.ErrNotEnoughSeats)
	assert.Equal(t, 0, repo.availableSeats())
}

func TestPurchaseTicket_NotEnoughSeats(t *testing.T) {
	repo := newFakeTicketRepo(2)
	svc := newTestService(repo, nil)

	_, err := svc.PurchaseTicket(context.Background(), purchaseReq(3))

	require.ErrorIs(t, err, entity.ErrNotEnoughSeats)
	assert.Equal(t, 0, repo.ticketCount())
	assert.Equal(t, 2, repo.availableSeats())
}

func TestPurchaseTicket_NoPartialAllocation(t *testing.T) {
	repo := newFakeTicketRepo(5)
	svc := newTestService(repo, nil)

	// 2 + 2 проходят, на третью двойку остаётся одно место
	for i := 0; i < 2; i++ {
		_, err := svc.PurchaseTicket(context.Background(), purchaseReq(2))
		require.NoError(t, err)
	}

	_, err := svc.PurchaseTicket(context.Background(), purchaseReq(2))
	require.ErrorIs(t, err, entity.ErrNotEnoughSeats)

	// Оставшееся место не выдаётся частично
	assert.Equal(t, 1, repo.availableSeats())
	assert.Equal(t, 2, repo.ticketCount())
}

func TestPurchaseTicket_ConcurrentNoOversell(t *testing.T) {
	const (
		seats  = 10
		buyers = 50
	)

	repo := newFakeTicketRepo(seats)
	svc := newTestService(repo, nil)

	var (
		wg        sync.WaitGroup
		succeeded int32
		soldOut   int32
	)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PurchaseTicket(context.Background(), purchaseReq(1))
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case errors.Is(err, entity.ErrNotEnoughSeats):
				atomic.AddInt32(&soldOut, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(seats), succeeded)
	assert.Equal(t, int32(buyers-seats), soldOut)
	assert.Equal(t, 0, repo.availableSeats())
	assert.Equal(t, seats, repo.ticketCount())
}

func TestPurchaseTicket_ConcurrentLastTwoSeats(t *testing.T) {
	repo := newFakeTicketRepo(2)
	svc := newTestService(repo, nil)

	var (
		wg        sync.WaitGroup
		succeeded int32
	)

	// Два покупателя одновременно берут по два последних места,
	// пройти должен ровно один
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.PurchaseTicket(context.Background(), purchaseReq(2)); err == nil {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, 0, repo.availableSeats())
}

func TestPurchaseTicket_FailedInsertLeaksNoSeats(t *testing.T) {
	repo := newFakeTicketRepo(10)
	repo.failInsert = true
	svc := newTestService(repo, nil)

	_, err := svc.PurchaseTicket(context.Background(), purchaseReq(2))

	require.Error(t, err)
	assert.Equal(t, 10, repo.availableSeats())
	assert.Equal(t, 0, repo.ticketCount())
}

func TestPurchaseTicket_RetriesOnNumberCollision(t *testing.T) {
	repo := newFakeTicketRepo(10)
	repo.collideNext = 2
	metrics := &recordingMetrics{}
	svc := newTestService(repo, metrics)

	result, err := svc.PurchaseTicket(context.Background(), purchaseReq(1))

	require.NoError(t, err)
	assert.NotEmpty(t, result.TicketNumber)
	assert.Equal(t, int32(2), atomic.LoadInt32(&metrics.retries))
	assert.Equal(t, 9, repo.availableSeats())
}

func TestPurchaseTicket_GivesUpAfterRetries(t *testing.T) {
	repo := newFakeTicketRepo(10)
	repo.collideNext = 5
	svc := newTestService(repo, nil)

	_, err := svc.PurchaseTicket(context.Background(), purchaseReq(1))

	require.ErrorIs(t, err, entity.ErrDuplicateTicketNumber)
	assert.Equal(t, 10, repo.availableSeats())
	assert.Equal(t, 0, repo.ticketCount())
}

func TestPurchaseTicket_EventNotFound(t *testing.T) {
	repo := newFakeTicketRepo(10)
	svc := newTestService(repo, nil)

	req := purchaseReq(1)
	req.EventID = "33333333-3333-3333-3333-333333333333"

	_, err := svc.PurchaseTicket(context.Background(), req)
	require.ErrorIs(t, err, entity.ErrEventNotFound)
}

func TestPurchaseTicket_CategoryMismatch(t *testing.T) {
	repo := newFakeTicketRepo(10)
	eventRepo := &fakeEventRepo{event: &entity.Event{
		ID:         testEventID,
		IsActive:   true,
		HasTickets: true,
	}}
	categoryRepo := &fakeCategoryRepo{category: &entity.TicketCategory{
		ID:      testCategoryID,
		EventID: "other-event",
	}}
	svc := NewTicketService(repo, eventRepo, categoryRepo, nil, nil, nil, config.TicketConfig{})

	_, err := svc.PurchaseTicket(context.Background(), purchaseReq(1))
	require.ErrorIs(t, err, entity.ErrCategoryMismatch)
}

func TestPurchaseTicket_InactiveEvent(t *testing.T) {
	repo := newFakeTicketRepo(10)
	eventRepo := &fakeEventRepo{event: &entity.Event{
		ID:         testEventID,
		IsActive:   false,
		HasTickets: true,
	}}
	categoryRepo := &fakeCategoryRepo{category: &entity.TicketCategory{
		ID:      testCategoryID,
		EventID: testEventID,
	}}
	svc := NewTicketService(repo, eventRepo, categoryRepo, nil, nil, nil, config.TicketConfig{})

	_, err := svc.PurchaseTicket(context.Background(), purchaseReq(1))
	require.ErrorIs(t, err, entity.ErrEventInactive)
}

func TestCancelTicket_RestoresSeats(t *testing.T) {
	repo := newFakeTicketRepo(10)
	svc := newTestService(repo, nil)

	result, err := svc.PurchaseTicket(context.Background(), purchaseReq(3))
	require.NoError(t, err)
	require.Equal(t, 7, repo.availableSeats())

	cancelled, err := svc.CancelTicket(context.Background(), result.TicketID, testUserID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, repo.availableSeats())
}

func TestCancelTicket_ForbiddenForOtherUser(t *testing.T) {
	repo := newFakeTicketRepo(10)
	svc := newTestService(repo, nil)

	result, err := svc.PurchaseTicket(context.Background(), purchaseReq(1))
	require.NoError(t, err)

	_, err = svc.CancelTicket(context.Background(), result.TicketID, "someone-else")
	require.ErrorIs(t, err, entity.ErrForbidden)
	assert.Equal(t, 9, repo.availableSeats())
}

func TestCancelTicket_TwiceFails(t *testing.T) {
	repo := newFakeTicketRepo(10)
	svc := newTestService(repo, nil)

	result, err := svc.PurchaseTicket(context.Background(), purchaseReq(2))
	require.NoError(t, err)

	_, err = svc.CancelTicket(context.Background(), result.TicketID, testUserID)
	require.NoError(t, err)

	// Повторная отмена не возвращает места второй раз
	_, err = svc.CancelTicket(context.Background(), result.TicketID, testUserID)
	require.ErrorIs(t, err, entity.ErrInvalidTicketStatus)
	assert.Equal(t, 10, repo.availableSeats())
}

func TestCheckInTicket(t *testing.T) {
	repo := newFakeTicketRepo(10)
	svc := newTestService(repo, nil)

	result, err := svc.PurchaseTicket(context.Background(), purchaseReq(1))
	require.NoError(t, err)

	ticket, err := svc.CheckInTicket(context.Background(), result.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUsed, ticket.Status)

	// Повторный вход по тому же билету отклоняется
	_, err = svc.CheckInTicket(context.Background(), result.TicketNumber)
	require.ErrorIs(t, err, entity.ErrTicketAlreadyUsed)
}
