package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/jsquare/astra-tickets/internal/entity"
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

type ticketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) TicketRepository {
	return &ticketRepository{db: db}
}

// Purchase creates a ticket with transaction to ensure seats are never oversold
func (r *ticketRepository) Purchase(ctx context.Context, ticket *entity.Ticket) (*entity.PurchaseResult, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the category row until commit; concurrent purchases of the
	// same category queue up on this lock
	var (
		price          decimal.Decimal
		availableSeats int
		isActive       bool
		hasTickets     bool
	)
	query := `
		SELECT c.price, c.available_seats, e.is_active, e.has_tickets
		FROM ticket_categories c
		JOIN events e ON e.id = c.event_id
		WHERE c.id = $1 AND c.event_id = $2
		FOR UPDATE OF c
	`
	err = tx.QueryRowContext(ctx, query, ticket.CategoryID, ticket.EventID).Scan(
		&price,
		&availableSeats,
		&isActive,
		&hasTickets,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock ticket category: %w", err)
	}

	if !isActive {
		return nil, entity.ErrEventInactive
	}
	if !hasTickets {
		return nil, entity.ErrEventNoTickets
	}
	if availableSeats < ticket.Quantity {
		return nil, entity.ErrNotEnoughSeats
	}

	newAvailableSeats := availableSeats - ticket.Quantity

	query = `UPDATE ticket_categories SET available_seats = available_seats - $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, ticket.Quantity, ticket.CategoryID); err != nil {
		// The CHECK constraint cannot fire while we hold the row lock;
		// if it does anyway, something bypassed the lock
		if isPqError(err, pqCheckViolation) {
			return nil, entity.ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("failed to reserve seats: %w", err)
	}

	now := time.Now()
	ticket.UnitPrice = price
	ticket.TotalPrice = price.Mul(decimal.NewFromInt(int64(ticket.Quantity)))

	query = `
		INSERT INTO tickets (
			user_id, event_id, category_id, ticket_number, quantity,
			unit_price, total_price, status, qr_code_url, purchase_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		ticket.UserID,
		ticket.EventID,
		ticket.CategoryID,
		ticket.TicketNumber,
		ticket.Quantity,
		ticket.UnitPrice,
		ticket.TotalPrice,
		ticket.Status,
		ticket.QRCodeURL,
		now,
		now,
	).Scan(&ticket.ID)

	if err != nil {
		// Rolling back also undoes the seat decrement, so the caller can
		// retry the whole purchase with a fresh ticket number
		if isPqError(err, pqUniqueViolation) {
			return nil, entity.ErrDuplicateTicketNumber
		}
		return nil, fmt.Errorf("failed to insert ticket: %w", err)
	}

	ticket.PurchaseTime = now
	ticket.CreatedAt = now

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &entity.PurchaseResult{
		TicketID:          ticket.ID,
		TicketNumber:      ticket.TicketNumber,
		NewAvailableSeats: newAvailableSeats,
	}, nil
}

// GetByID retrieves a ticket by its ID
func (r *ticketRepository) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	query := `
		SELECT
			id, user_id, event_id, category_id, ticket_number, quantity,
			unit_price, total_price, status, qr_code_url, purchase_time, created_at
		FROM tickets
		WHERE id = $1
	`

	var ticket entity.Ticket
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.EventID,
		&ticket.CategoryID,
		&ticket.TicketNumber,
		&ticket.Quantity,
		&ticket.UnitPrice,
		&ticket.TotalPrice,
		&ticket.Status,
		&ticket.QRCodeURL,
		&ticket.PurchaseTime,
		&ticket.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, entity.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return &ticket, nil
}

// GetByNumber retrieves a ticket with event details by its public number
func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*entity.TicketWithEvent, error) {
	query := `
		SELECT
			t.id, t.user_id, t.event_id, t.category_id, t.ticket_number, t.quantity,
			t.unit_price, t.total_price, t.status, t.qr_code_url, t.purchase_time, t.created_at,
			e.title, e.date, e.venue, c.name
		FROM tickets t
		JOIN events e ON t.event_id = e.id
		JOIN ticket_categories c ON t.category_id = c.id
		WHERE t.ticket_number = $1
	`

	var ticket entity.TicketWithEvent
	err := r.db.QueryRowContext(ctx, query, number).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.EventID,
		&ticket.CategoryID,
		&ticket.TicketNumber,
		&ticket.Quantity,
		&ticket.UnitPrice,
		&ticket.TotalPrice,
		&ticket.Status,
		&ticket.QRCodeURL,
		&ticket.PurchaseTime,
		&ticket.CreatedAt,
		&ticket.EventTitle,
		&ticket.EventDate,
		&ticket.EventVenue,
		&ticket.CategoryName,
	)

	if err == sql.ErrNoRows {
		return nil, entity.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket by number: %w", err)
	}

	return &ticket, nil
}

// GetByUserID retrieves all tickets of a user, newest first
func (r *ticketRepository) GetByUserID(ctx context.Context, userID string) ([]*entity.TicketWithEvent, error) {
	query := `
		SELECT
			t.id, t.user_id, t.event_id, t.category_id, t.ticket_number, t.quantity,
			t.unit_price, t.total_price, t.status, t.qr_code_url, t.purchase_time, t.created_at,
			e.title, e.date, e.venue, c.name
		FROM tickets t
		JOIN events e ON t.event_id = e.id
		JOIN ticket_categories c ON t.category_id = c.id
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets by user: %w", err)
	}
	defer rows.Close()

	return scanTicketsWithEvent(rows)
}

// GetRecent retrieves the most recent tickets across all events
func (r *ticketRepository) GetRecent(ctx context.Context, limit int) ([]*entity.TicketWithEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			t.id, t.user_id, t.event_id, t.category_id, t.ticket_number, t.quantity,
			t.unit_price, t.total_price, t.status, t.qr_code_url, t.purchase_time, t.created_at,
			e.title, e.date, e.venue, c.name
		FROM tickets t
		JOIN events e ON t.event_id = e.id
		JOIN ticket_categories c ON t.category_id = c.id
		ORDER BY t.created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tickets: %w", err)
	}
	defer rows.Close()

	return scanTicketsWithEvent(rows)
}

// Cancel marks a ticket cancelled and returns its seats to the category
// pool; both changes commit or roll back together
func (r *ticketRepository) Cancel(ctx context.Context, id string) (*entity.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ticket, err := getTicketForUpdate(ctx, tx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	switch ticket.Status {
	case entity.TicketStatusUsed:
		return nil, entity.ErrTicketAlreadyUsed
	case entity.TicketStatusCancelled, entity.TicketStatusRefunded:
		return nil, entity.ErrInvalidTicketStatus
	}

	query := `UPDATE tickets SET status = $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, entity.TicketStatusCancelled, ticket.ID); err != nil {
		return nil, fmt.Errorf("failed to cancel ticket: %w", err)
	}

	query = `UPDATE ticket_categories SET available_seats = available_seats + $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, ticket.Quantity, ticket.CategoryID); err != nil {
		if isPqError(err, pqCheckViolation) {
			return nil, entity.ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("failed to return seats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	ticket.Status = entity.TicketStatusCancelled
	return ticket, nil
}

// CheckIn marks a confirmed ticket as used at the venue entrance
func (r *ticketRepository) CheckIn(ctx context.Context, number string) (*entity.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ticket, err := getTicketForUpdate(ctx, tx, `WHERE ticket_number = $1`, number)
	if err != nil {
		return nil, err
	}

	if ticket.Status == entity.TicketStatusUsed {
		return nil, entity.ErrTicketAlreadyUsed
	}
	if ticket.Status != entity.TicketStatusConfirmed {
		return nil, entity.ErrInvalidTicketStatus
	}

	query := `UPDATE tickets SET status = $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, entity.TicketStatusUsed, ticket.ID); err != nil {
		return nil, fmt.Errorf("failed to check in ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	ticket.Status = entity.TicketStatusUsed
	return ticket, nil
}

// GetDashboardStats возвращает сводную статистику продаж
func (r *ticketRepository) GetDashboardStats(ctx context.Context) (*entity.DashboardStats, error) {
	stats := &entity.DashboardStats{
		TicketsByStatus: make(map[entity.TicketStatus]int64),
		GeneratedAt:     time.Now(),
	}

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status IN ('confirmed', 'used') THEN quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('confirmed', 'used') THEN total_price ELSE 0 END), 0)
		FROM tickets
	`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalTickets,
		&stats.SeatsSold,
		&stats.Revenue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket totals: %w", err)
	}

	query = `SELECT status, COUNT(*) FROM tickets GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status entity.TicketStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.TicketsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	query = `SELECT COUNT(*) FROM events WHERE is_active = TRUE`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.ActiveEvents); err != nil {
		return nil, fmt.Errorf("failed to count active events: %w", err)
	}

	return stats, nil
}

// GetCategorySales возвращает статистику продаж по категориям мероприятия
func (r *ticketRepository) GetCategorySales(ctx context.Context, eventID string) ([]*entity.CategorySalesStats, error) {
	query := `
		SELECT
			c.id, c.name, e.title, c.total_seats, c.available_seats,
			COALESCE(SUM(CASE WHEN t.status IN ('confirmed', 'used') THEN t.quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN t.status IN ('confirmed', 'used') THEN t.total_price ELSE 0 END), 0)
		FROM ticket_categories c
		JOIN events e ON c.event_id = e.id
		LEFT JOIN tickets t ON t.category_id = c.id
		WHERE c.event_id = $1
		GROUP BY c.id, c.name, e.title, c.total_seats, c.available_seats, c.sort_order
		ORDER BY c.sort_order, c.name
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category sales: %w", err)
	}
	defer rows.Close()

	var stats []*entity.CategorySalesStats
	for rows.Next() {
		var s entity.CategorySalesStats
		err := rows.Scan(
			&s.CategoryID,
			&s.CategoryName,
			&s.EventTitle,
			&s.TotalSeats,
			&s.AvailableSeats,
			&s.SeatsSold,
			&s.Revenue,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category sales: %w", err)
		}
		stats = append(stats, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category sales: %w", err)
	}

	return stats, nil
}

func getTicketForUpdate(ctx context.Context, tx *sql.Tx, where string, arg interface{}) (*entity.Ticket, error) {
	query := `
		SELECT
			id, user_id, event_id, category_id, ticket_number, quantity,
			unit_price, total_price, status, qr_code_url, purchase_time, created_at
		FROM tickets
		` + where + `
		FOR UPDATE
	`

	var ticket entity.Ticket
	err := tx.QueryRowContext(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.EventID,
		&ticket.CategoryID,
		&ticket.TicketNumber,
		&ticket.Quantity,
		&ticket.UnitPrice,
		&ticket.TotalPrice,
		&ticket.Status,
		&ticket.QRCodeURL,
		&ticket.PurchaseTime,
		&ticket.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, entity.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket with lock: %w", err)
	}

	return &ticket, nil
}

func scanTicketsWithEvent(rows *sql.Rows) ([]*entity.TicketWithEvent, error) {
	var tickets []*entity.TicketWithEvent
	for rows.Next() {
		var ticket entity.TicketWithEvent
		err := rows.Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.EventID,
			&ticket.CategoryID,
			&ticket.TicketNumber,
			&ticket.Quantity,
			&ticket.UnitPrice,
			&ticket.TotalPrice,
			&ticket.Status,
			&ticket.QRCodeURL,
			&ticket.PurchaseTime,
			&ticket.CreatedAt,
			&ticket.EventTitle,
			&ticket.EventDate,
			&ticket.EventVenue,
			&ticket.CategoryName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, &ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

func isPqError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
