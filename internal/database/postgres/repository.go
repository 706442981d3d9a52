package repository

import (
	"context"

	"github.com/jsquare/astra-tickets/internal/entity"
)

type TicketRepository interface {
	// Purchase atomically reserves seats and creates the ticket in a
	// single transaction. The category row is locked for the duration,
	// so concurrent purchases of the same category serialize on it.
	Purchase(ctx context.Context, ticket *entity.Ticket) (*entity.PurchaseResult, error)

	GetByID(ctx context.Context, id string) (*entity.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*entity.TicketWithEvent, error)
	GetByUserID(ctx context.Context, userID string) ([]*entity.TicketWithEvent, error)
	GetRecent(ctx context.Context, limit int) ([]*entity.TicketWithEvent, error)

	// Cancel marks the ticket cancelled and returns its seats to the
	// category pool in the same transaction
	Cancel(ctx context.Context, id string) (*entity.Ticket, error)
	CheckIn(ctx context.Context, number string) (*entity.Ticket, error)

	// Статистика для админ-панели и периодических отчётов
	GetDashboardStats(ctx context.Context) (*entity.DashboardStats, error)
	GetCategorySales(ctx context.Context, eventID string) ([]*entity.CategorySalesStats, error)
}

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Event, error)
	GetAll(ctx context.Context, onlyActive bool) ([]*entity.Event, error)
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id string) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.TicketCategory) error
	GetByID(ctx context.Context, id string) (*entity.TicketCategory, error)
	GetByEventID(ctx context.Context, eventID string) ([]*entity.TicketCategory, error)
	Update(ctx context.Context, category *entity.TicketCategory) error

	// GetAvailability returns a display snapshot; it may be stale by
	// the time a purchase runs and must not be used as a guard
	GetAvailability(ctx context.Context, eventID string) ([]*entity.CategoryAvailability, error)
}
