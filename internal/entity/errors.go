package entity

import "errors"

var (
	// Event errors
	ErrEventNotFound      = errors.New("event not found")
	ErrEventAlreadyExists = errors.New("event already exists")
	ErrEventInactive      = errors.New("event is not active")
	ErrEventNoTickets     = errors.New("event has no tickets on sale")

	// Category errors
	ErrCategoryNotFound = errors.New("ticket category not found")
	ErrCategoryMismatch = errors.New("category does not belong to event")

	// Ticket errors
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrInvalidQuantity       = errors.New("invalid ticket quantity")
	ErrNotEnoughSeats        = errors.New("not enough available seats")
	ErrInvalidTicketStatus   = errors.New("invalid ticket status")
	ErrTicketAlreadyUsed     = errors.New("ticket already used")
	ErrDuplicateTicketNumber = errors.New("duplicate ticket number")

	// General errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrDatabaseError    = errors.New("database error")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden operation")
)
