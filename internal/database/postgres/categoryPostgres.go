package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jsquare/astra-tickets/internal/entity"
)

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *entity.TicketCategory) error {
	// New categories start with the full pool available
	query := `
		INSERT INTO ticket_categories (event_id, name, price, total_seats, available_seats, description, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		category.EventID,
		category.Name,
		category.Price,
		category.TotalSeats,
		category.Description,
		category.SortOrder,
		now,
	).Scan(&category.ID)

	if err != nil {
		return fmt.Errorf("failed to create ticket category: %w", err)
	}

	category.AvailableSeats = category.TotalSeats
	category.CreatedAt = now
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*entity.TicketCategory, error) {
	query := `
		SELECT id, event_id, name, price, total_seats, available_seats, description, sort_order, created_at
		FROM ticket_categories
		WHERE id = $1
	`

	var category entity.TicketCategory
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.EventID,
		&category.Name,
		&category.Price,
		&category.TotalSeats,
		&category.AvailableSeats,
		&category.Description,
		&category.SortOrder,
		&category.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, entity.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket category: %w", err)
	}

	return &category, nil
}

func (r *categoryRepository) GetByEventID(ctx context.Context, eventID string) ([]*entity.TicketCategory, error) {
	query := `
		SELECT id, event_id, name, price, total_seats, available_seats, description, sort_order, created_at
		FROM ticket_categories
		WHERE event_id = $1
		ORDER BY sort_order, name
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket categories: %w", err)
	}
	defer rows.Close()

	var categories []*entity.TicketCategory
	for rows.Next() {
		var category entity.TicketCategory
		err := rows.Scan(
			&category.ID,
			&category.EventID,
			&category.Name,
			&category.Price,
			&category.TotalSeats,
			&category.AvailableSeats,
			&category.Description,
			&category.SortOrder,
			&category.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket category: %w", err)
		}
		categories = append(categories, &category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket categories: %w", err)
	}

	return categories, nil
}

// Update changes category attributes. Seat counts are adjusted in a
// transaction so that sold seats are preserved when the pool is resized.
func (r *categoryRepository) Update(ctx context.Context, category *entity.TicketCategory) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var totalSeats, availableSeats int
	query := `SELECT total_seats, available_seats FROM ticket_categories WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, category.ID).Scan(&totalSeats, &availableSeats)
	if err == sql.ErrNoRows {
		return entity.ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock ticket category: %w", err)
	}

	soldSeats := totalSeats - availableSeats
	if category.TotalSeats < soldSeats {
		return entity.ErrNotEnoughSeats
	}

	query = `
		UPDATE ticket_categories
		SET name = $1, price = $2, total_seats = $3, available_seats = $4, description = $5, sort_order = $6
		WHERE id = $7
	`
	_, err = tx.ExecContext(ctx, query,
		category.Name,
		category.Price,
		category.TotalSeats,
		category.TotalSeats-soldSeats,
		category.Description,
		category.SortOrder,
		category.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	category.AvailableSeats = category.TotalSeats - soldSeats
	return nil
}

// GetAvailability returns the display snapshot of seat availability
func (r *categoryRepository) GetAvailability(ctx context.Context, eventID string) ([]*entity.CategoryAvailability, error) {
	query := `
		SELECT id, name, price, total_seats, available_seats
		FROM ticket_categories
		WHERE event_id = $1
		ORDER BY sort_order, name
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	var availability []*entity.CategoryAvailability
	for rows.Next() {
		var a entity.CategoryAvailability
		err := rows.Scan(
			&a.CategoryID,
			&a.Name,
			&a.Price,
			&a.TotalSeats,
			&a.AvailableSeats,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		a.SoldOut = a.AvailableSeats == 0
		availability = append(availability, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating availability: %w", err)
	}

	return availability, nil
}
