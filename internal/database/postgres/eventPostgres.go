package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jsquare/astra-tickets/internal/entity"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	query := `
		INSERT INTO events (slug, title, description, date, venue, location, has_tickets, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		event.Slug,
		event.Title,
		event.Description,
		event.Date,
		event.Venue,
		event.Location,
		event.HasTickets,
		event.IsActive,
		now,
		now,
	).Scan(&event.ID)

	if err != nil {
		if isPqError(err, pqUniqueViolation) {
			return entity.ErrEventAlreadyExists
		}
		return fmt.Errorf("failed to create event: %w", err)
	}

	event.CreatedAt = now
	event.UpdatedAt = now
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *eventRepository) GetBySlug(ctx context.Context, slug string) (*entity.Event, error) {
	return r.getOne(ctx, `WHERE slug = $1`, slug)
}

func (r *eventRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.Event, error) {
	query := `
		SELECT id, slug, title, description, date, venue, location, has_tickets, is_active, created_at, updated_at
		FROM events
		` + where

	var event entity.Event
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&event.ID,
		&event.Slug,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Venue,
		&event.Location,
		&event.HasTickets,
		&event.IsActive,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

func (r *eventRepository) GetAll(ctx context.Context, onlyActive bool) ([]*entity.Event, error) {
	query := `
		SELECT id, slug, title, description, date, venue, location, has_tickets, is_active, created_at, updated_at
		FROM events
	`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		var event entity.Event
		err := rows.Scan(
			&event.ID,
			&event.Slug,
			&event.Title,
			&event.Description,
			&event.Date,
			&event.Venue,
			&event.Location,
			&event.HasTickets,
			&event.IsActive,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	query := `
		UPDATE events
		SET slug = $1, title = $2, description = $3, date = $4, venue = $5,
		    location = $6, has_tickets = $7, is_active = $8, updated_at = $9
		WHERE id = $10
	`

	result, err := r.db.ExecContext(ctx, query,
		event.Slug,
		event.Title,
		event.Description,
		event.Date,
		event.Venue,
		event.Location,
		event.HasTickets,
		event.IsActive,
		time.Now(),
		event.ID,
	)

	if err != nil {
		if isPqError(err, pqUniqueViolation) {
			return entity.ErrEventAlreadyExists
		}
		return fmt.Errorf("failed to update event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}

	event.UpdatedAt = time.Now()
	return nil
}

// Delete деактивирует мероприятие; билеты и категории сохраняются
func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE events SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}

	return nil
}
