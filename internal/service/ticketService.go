package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jsquare/astra-tickets/config"
	repository "github.com/jsquare/astra-tickets/internal/database/postgres"
	"github.com/jsquare/astra-tickets/internal/entity"
	"github.com/jsquare/astra-tickets/pkg/monitoring"
	"github.com/jsquare/astra-tickets/pkg/ticketcode"
)

const defaultInsertRetries = 3

type ticketService struct {
	ticketRepo   repository.TicketRepository
	eventRepo    repository.EventRepository
	categoryRepo repository.CategoryRepository
	cache        AvailabilityCache
	queue        TaskPublisher
	metrics      Metrics
	cfg          config.TicketConfig
}

// NewTicketService создает новый экземпляр TicketService.
// cache, queue и metrics могут быть nil, сервис работает без них.
func NewTicketService(
	ticketRepo repository.TicketRepository,
	eventRepo repository.EventRepository,
	categoryRepo repository.CategoryRepository,
	cache AvailabilityCache,
	queue TaskPublisher,
	metrics Metrics,
	cfg config.TicketConfig,
) TicketService {
	return &ticketService{
		ticketRepo:   ticketRepo,
		eventRepo:    eventRepo,
		categoryRepo: categoryRepo,
		cache:        cache,
		queue:        queue,
		metrics:      metrics,
		cfg:          cfg,
	}
}

// PurchaseTicket атомарно покупает места: проверка остатка, декремент
// и создание билета происходят в одной транзакции репозитория
func (s *ticketService) PurchaseTicket(ctx context.Context, req *PurchaseTicketRequest) (*entity.PurchaseResult, error) {
	start := time.Now()
	result, err := s.purchase(ctx, req)
	if s.metrics != nil {
		s.metrics.TrackPurchase(purchaseOutcome(err), time.Since(start))
	}
	return result, err
}

func (s *ticketService) purchase(ctx context.Context, req *PurchaseTicketRequest) (*entity.PurchaseResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", entity.ErrInvalidInput)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", entity.ErrInvalidQuantity, req.Quantity)
	}
	// Лимит на покупку действует только если задан в конфиге; остаток
	// мест проверяется под блокировкой в репозитории
	if s.cfg.MaxQuantity > 0 && req.Quantity > s.cfg.MaxQuantity {
		return nil, fmt.Errorf("%w: at most %d seats per purchase", entity.ErrInvalidQuantity, s.cfg.MaxQuantity)
	}

	// Валидация мероприятия и категории до транзакции; авторитетная
	// проверка остатка происходит под блокировкой в репозитории
	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, entity.ErrEventInactive
	}
	if !event.HasTickets {
		return nil, entity.ErrEventNoTickets
	}

	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if category.EventID != req.EventID {
		return nil, entity.ErrCategoryMismatch
	}

	retries := s.cfg.InsertRetries
	if retries <= 0 {
		retries = defaultInsertRetries
	}

	// Коллизия номера билета откатывает всю транзакцию, поэтому повтор
	// безопасен: ни декремент, ни вставка не сохраняются
	for attempt := 1; attempt <= retries; attempt++ {
		number := ticketcode.Generate(s.cfg.NumberPrefix)

		ticket := &entity.Ticket{
			UserID:       req.UserID,
			EventID:      req.EventID,
			CategoryID:   req.CategoryID,
			TicketNumber: number,
			Quantity:     req.Quantity,
			Status:       entity.TicketStatusConfirmed,
			QRCodeURL:    ticketcode.QRCodeURL(s.cfg.QRBaseURL, s.cfg.TicketBaseURL, number),
		}

		result, err := s.ticketRepo.Purchase(ctx, ticket)
		if errors.Is(err, entity.ErrDuplicateTicketNumber) {
			if s.metrics != nil {
				s.metrics.TrackTicketNumberRetry()
			}
			logrus.Warnf("Ticket number collision on %s, retrying (%d/%d)", number, attempt, retries)
			continue
		}
		if err != nil {
			return nil, err
		}

		logrus.WithFields(logrus.Fields{
			"ticket_id":     result.TicketID,
			"ticket_number": result.TicketNumber,
			"event_id":      req.EventID,
			"category_id":   req.CategoryID,
			"quantity":      req.Quantity,
			"user_id":       req.UserID,
		}).Info("Ticket purchased")

		s.afterPurchase(ticket, event, category)
		return result, nil
	}

	return nil, fmt.Errorf("%w: gave up after %d attempts", entity.ErrDuplicateTicketNumber, retries)
}

func (s *ticketService) afterPurchase(ticket *entity.Ticket, event *entity.Event, category *entity.TicketCategory) {
	s.invalidateAvailability(ticket.EventID)

	if s.queue == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notification := &Task{
		ID:   uuid.NewString(),
		Type: TaskTypePurchaseNotification,
		Data: map[string]interface{}{
			"ticket_number": ticket.TicketNumber,
			"event_title":   event.Title,
			"category_name": category.Name,
			"quantity":      ticket.Quantity,
			"total_price":   ticket.TotalPrice.StringFixed(2),
		},
		MaxRetries: 3,
	}
	if err := s.queue.Publish(ctx, notification); err != nil {
		logrus.Errorf("Failed to publish purchase notification: %s", err.Error())
	}

	s.publishRefresh(ctx, ticket.EventID)
}

func (s *ticketService) publishRefresh(ctx context.Context, eventID string) {
	task := &Task{
		ID:   uuid.NewString(),
		Type: TaskTypeRefreshAvailability,
		Data: map[string]interface{}{
			"event_id": eventID,
		},
		MaxRetries: 2,
	}
	if err := s.queue.Publish(ctx, task); err != nil {
		logrus.Errorf("Failed to publish availability refresh: %s", err.Error())
	}
}

func (s *ticketService) invalidateAvailability(eventID string) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		logrus.Warnf("Failed to invalidate availability cache for event %s: %s", eventID, err.Error())
	}
}

// CancelTicket отменяет билет и возвращает места в пул категории.
// Пустой userID означает административную отмену без проверки владельца.
func (s *ticketService) CancelTicket(ctx context.Context, ticketID, userID string) (*entity.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if userID != "" && ticket.UserID != userID {
		return nil, entity.ErrForbidden
	}

	cancelled, err := s.ticketRepo.Cancel(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"ticket_id":     cancelled.ID,
		"ticket_number": cancelled.TicketNumber,
		"quantity":      cancelled.Quantity,
	}).Info("Ticket cancelled")

	s.invalidateAvailability(cancelled.EventID)

	if s.queue != nil {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		task := &Task{
			ID:   uuid.NewString(),
			Type: TaskTypeCancelNotification,
			Data: map[string]interface{}{
				"ticket_number": cancelled.TicketNumber,
				"quantity":      cancelled.Quantity,
			},
			MaxRetries: 3,
		}
		if err := s.queue.Publish(pubCtx, task); err != nil {
			logrus.Errorf("Failed to publish cancel notification: %s", err.Error())
		}

		s.publishRefresh(pubCtx, cancelled.EventID)
	}

	return cancelled, nil
}

// CheckInTicket отмечает билет использованным на входе
func (s *ticketService) CheckInTicket(ctx context.Context, number string) (*entity.Ticket, error) {
	ticket, err := s.ticketRepo.CheckIn(ctx, number)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"ticket_number": ticket.TicketNumber,
		"event_id":      ticket.EventID,
	}).Info("Ticket checked in")

	return ticket, nil
}

func (s *ticketService) GetTicket(ctx context.Context, id string) (*entity.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, id)
}

func (s *ticketService) GetTicketByNumber(ctx context.Context, number string) (*entity.TicketWithEvent, error) {
	return s.ticketRepo.GetByNumber(ctx, number)
}

func (s *ticketService) GetUserTickets(ctx context.Context, userID string) ([]*entity.TicketWithEvent, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", entity.ErrInvalidInput)
	}
	return s.ticketRepo.GetByUserID(ctx, userID)
}

func (s *ticketService) GetRecentTickets(ctx context.Context, limit int) ([]*entity.TicketWithEvent, error) {
	return s.ticketRepo.GetRecent(ctx, limit)
}

func (s *ticketService) GetDashboardStats(ctx context.Context) (*entity.DashboardStats, error) {
	return s.ticketRepo.GetDashboardStats(ctx)
}

func (s *ticketService) GetCategorySales(ctx context.Context, eventID string) ([]*entity.CategorySalesStats, error) {
	return s.ticketRepo.GetCategorySales(ctx, eventID)
}

// PublishStatsReport собирает сводку продаж и ставит задачу отправки
// отчёта; вызывается планировщиком по расписанию
func (s *ticketService) PublishStatsReport(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}

	stats, err := s.ticketRepo.GetDashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect dashboard stats: %w", err)
	}

	text := fmt.Sprintf(
		"📊 Отчёт о продажах\n\n"+
			"Всего покупок: %d\n"+
			"Продано мест: %d\n"+
			"Выручка: %s\n"+
			"Активных мероприятий: %d",
		stats.TotalTickets,
		stats.SeatsSold,
		stats.Revenue.StringFixed(2),
		stats.ActiveEvents,
	)

	task := &Task{
		ID:   uuid.NewString(),
		Type: TaskTypeStatsReport,
		Data: map[string]interface{}{
			"text": text,
		},
		MaxRetries: 3,
	}

	return s.queue.Publish(ctx, task)
}

func purchaseOutcome(err error) string {
	switch {
	case err == nil:
		return monitoring.OutcomeSuccess
	case errors.Is(err, entity.ErrNotEnoughSeats):
		return monitoring.OutcomeNotEnoughSeats
	case errors.Is(err, entity.ErrInvalidQuantity):
		return monitoring.OutcomeInvalidQuantity
	case errors.Is(err, entity.ErrEventNotFound), errors.Is(err, entity.ErrCategoryNotFound):
		return monitoring.OutcomeNotFound
	default:
		return monitoring.OutcomeError
	}
}
