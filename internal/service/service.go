package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsquare/astra-tickets/internal/entity"
)

// TicketService определяет интерфейс для операций с билетами
type TicketService interface {
	// Основные операции
	PurchaseTicket(ctx context.Context, req *PurchaseTicketRequest) (*entity.PurchaseResult, error)
	CancelTicket(ctx context.Context, ticketID, userID string) (*entity.Ticket, error)
	CheckInTicket(ctx context.Context, number string) (*entity.Ticket, error)

	// Чтение
	GetTicket(ctx context.Context, id string) (*entity.Ticket, error)
	GetTicketByNumber(ctx context.Context, number string) (*entity.TicketWithEvent, error)
	GetUserTickets(ctx context.Context, userID string) ([]*entity.TicketWithEvent, error)

	// Административные операции
	GetRecentTickets(ctx context.Context, limit int) ([]*entity.TicketWithEvent, error)
	GetDashboardStats(ctx context.Context) (*entity.DashboardStats, error)
	GetCategorySales(ctx context.Context, eventID string) ([]*entity.CategorySalesStats, error)
	PublishStatsReport(ctx context.Context) error
}

// EventService определяет интерфейс для операций с мероприятиями
type EventService interface {
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error)
	GetEvent(ctx context.Context, id string) (*entity.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*entity.Event, error)
	GetAllEvents(ctx context.Context, onlyActive bool) ([]*entity.Event, error)
	UpdateEvent(ctx context.Context, id string, req *UpdateEventRequest) (*entity.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	// Категории билетов
	CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*entity.TicketCategory, error)
	GetEventCategories(ctx context.Context, eventID string) ([]*entity.TicketCategory, error)
	UpdateCategory(ctx context.Context, id string, req *UpdateCategoryRequest) (*entity.TicketCategory, error)

	// Доступность мест (снимок, через кеш)
	GetAvailability(ctx context.Context, eventID string) ([]*entity.CategoryAvailability, error)
	RefreshEvent(ctx context.Context, eventID string) error

	// Рейтинг по числу просмотров доступности
	GetPopularEvents(ctx context.Context, limit int) ([]*entity.Event, error)
}

// PurchaseTicketRequest представляет данные для покупки билета
type PurchaseTicketRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	EventID    string `json:"event_id" binding:"required"`
	CategoryID string `json:"category_id" binding:"required"`
	Quantity   int    `json:"quantity"`
}

type CreateEventRequest struct {
	Slug        string    `json:"slug" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" binding:"required"`
	Venue       string    `json:"venue" binding:"required"`
	Location    string    `json:"location"`
	HasTickets  bool      `json:"has_tickets"`
}

type UpdateEventRequest struct {
	Slug        *string    `json:"slug"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Venue       *string    `json:"venue"`
	Location    *string    `json:"location"`
	HasTickets  *bool      `json:"has_tickets"`
	IsActive    *bool      `json:"is_active"`
}

type CreateCategoryRequest struct {
	EventID     string          `json:"event_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	TotalSeats  int             `json:"total_seats" binding:"required,min=1"`
	Description string          `json:"description"`
	SortOrder   int             `json:"sort_order"`
}

type UpdateCategoryRequest struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	TotalSeats  *int             `json:"total_seats"`
	Description *string          `json:"description"`
	SortOrder   *int             `json:"sort_order"`
}

// TaskPublisher интерфейс для публикации задач в очередь
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task представляет задачу для очереди
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

// Константы типов задач
const (
	TaskTypePurchaseNotification = "purchase_notification"
	TaskTypeCancelNotification   = "cancel_notification"
	TaskTypeStatsReport          = "stats_report"
	TaskTypeRefreshAvailability  = "refresh_availability"
)

// AvailabilityCache кеширует снимки доступности мест и ведет
// счетчики просмотров мероприятий
type AvailabilityCache interface {
	Get(ctx context.Context, eventID string) ([]*entity.CategoryAvailability, error)
	Set(ctx context.Context, eventID string, availability []*entity.CategoryAvailability) error
	Invalidate(ctx context.Context, eventID string) error
	TrackPopularEvent(ctx context.Context, eventID string) error
	GetPopularEvents(ctx context.Context, count int) ([]string, error)
}

// Metrics записывает метрики операций с билетами
type Metrics interface {
	TrackPurchase(outcome string, duration time.Duration)
	TrackTicketNumberRetry()
}
