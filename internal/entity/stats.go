package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats содержит сводную статистику продаж для админ-панели
type DashboardStats struct {
	TotalTickets    int64                  `json:"total_tickets"`
	SeatsSold       int64                  `json:"seats_sold"`
	Revenue         decimal.Decimal        `json:"revenue"`
	TicketsByStatus map[TicketStatus]int64 `json:"tickets_by_status"`
	ActiveEvents    int64                  `json:"active_events"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// CategorySalesStats содержит статистику продаж по одной категории
type CategorySalesStats struct {
	CategoryID     string          `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	EventTitle     string          `json:"event_title"`
	TotalSeats     int             `json:"total_seats"`
	AvailableSeats int             `json:"available_seats"`
	SeatsSold      int             `json:"seats_sold"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// UtilizationRate вычисляет долю проданных мест (0.0 до 1.0)
func (s *CategorySalesStats) UtilizationRate() float64 {
	if s.TotalSeats == 0 {
		return 0.0
	}
	return float64(s.SeatsSold) / float64(s.TotalSeats)
}

// SoldOut проверяет, распроданы ли все места категории
func (s *CategorySalesStats) SoldOut() bool {
	return s.AvailableSeats == 0
}

// String возвращает строковое представление статистики категории
func (s *CategorySalesStats) String() string {
	return fmt.Sprintf(
		"%s / %s: sold %d/%d, revenue %s",
		s.EventTitle,
		s.CategoryName,
		s.SeatsSold,
		s.TotalSeats,
		s.Revenue.StringFixed(2),
	)
}
