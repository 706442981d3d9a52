package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketCategory — пул мест одной категории мероприятия.
// AvailableSeats изменяется только покупкой (декремент) и
// компенсирующей отменой (инкремент), всегда в одной транзакции.
type TicketCategory struct {
	ID             string          `json:"id" db:"id"`
	EventID        string          `json:"event_id" db:"event_id"`
	Name           string          `json:"name" db:"name"`
	Price          decimal.Decimal `json:"price" db:"price"`
	TotalSeats     int             `json:"total_seats" db:"total_seats"`
	AvailableSeats int             `json:"available_seats" db:"available_seats"`
	Description    string          `json:"description" db:"description"`
	SortOrder      int             `json:"sort_order" db:"sort_order"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// CategoryAvailability — снимок остатка мест для отображения.
// Может устареть к моменту покупки, это ожидаемо: авторитетна
// только проверка внутри транзакции покупки.
type CategoryAvailability struct {
	CategoryID     string          `json:"category_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	TotalSeats     int             `json:"total_seats"`
	AvailableSeats int             `json:"available_seats"`
	SoldOut        bool            `json:"sold_out"`
}
