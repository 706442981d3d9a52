package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusConfirmed TicketStatus = "confirmed"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusRefunded  TicketStatus = "refunded"
	TicketStatusUsed      TicketStatus = "used"
)

type Ticket struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	EventID      string          `json:"event_id" db:"event_id"`
	CategoryID   string          `json:"category_id" db:"category_id"`
	TicketNumber string          `json:"ticket_number" db:"ticket_number"`
	Quantity     int             `json:"quantity" db:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price" db:"total_price"`
	Status       TicketStatus    `json:"status" db:"status"`
	QRCodeURL    string          `json:"qr_code_url" db:"qr_code_url"`
	PurchaseTime time.Time       `json:"purchase_time" db:"purchase_time"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// PurchaseResult — результат атомарной покупки билета.
// NewAvailableSeats — снимок остатка мест сразу после покупки,
// только для обновления UI, не гарантия для последующих чтений.
type PurchaseResult struct {
	TicketID          string `json:"ticket_id"`
	TicketNumber      string `json:"ticket_number"`
	NewAvailableSeats int    `json:"new_available_seats"`
}

// TicketWithEvent — билет с данными мероприятия для отображения
type TicketWithEvent struct {
	Ticket
	EventTitle   string    `json:"event_title"`
	EventDate    time.Time `json:"event_date"`
	EventVenue   string    `json:"event_venue"`
	CategoryName string    `json:"category_name"`
}
