package entity

import (
	"time"
)

type Event struct {
	ID          string    `json:"id" db:"id"`
	Slug        string    `json:"slug" db:"slug"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Date        time.Time `json:"date" db:"date"`
	Venue       string    `json:"venue" db:"venue"`
	Location    string    `json:"location" db:"location"`
	HasTickets  bool      `json:"has_tickets" db:"has_tickets"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
