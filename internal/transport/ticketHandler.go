package transport

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jsquare/astra-tickets/internal/service"
)

type TicketHandler struct {
	ticketService service.TicketService
}

func NewTicketHandler(ticketService service.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// PurchaseTicket обрабатывает покупку билета
func (h *TicketHandler) PurchaseTicket(c *gin.Context) {
	var req service.PurchaseTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	result, err := h.ticketService.PurchaseTicket(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Success: true,
		Message: "ticket purchased",
		Data:    result,
	})
}

// CancelTicket отменяет билет; user_id в query ограничивает отмену владельцем
func (h *TicketHandler) CancelTicket(c *gin.Context) {
	ticketID := c.Param("id")
	userID := c.Query("user_id")

	ticket, err := h.ticketService.CancelTicket(c.Request.Context(), ticketID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "ticket cancelled",
		Data:    ticket,
	})
}

// CheckInTicket отмечает билет использованным по его номеру
func (h *TicketHandler) CheckInTicket(c *gin.Context) {
	number := c.Param("number")

	ticket, err := h.ticketService.CheckInTicket(c.Request.Context(), number)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "ticket checked in",
		Data:    ticket,
	})
}

func (h *TicketHandler) GetTicketByNumber(c *gin.Context) {
	number := c.Param("number")

	ticket, err := h.ticketService.GetTicketByNumber(c.Request.Context(), number)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) GetUserTickets(c *gin.Context) {
	userID := c.Param("user_id")

	tickets, err := h.ticketService.GetUserTickets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// GetDashboardStats возвращает сводную статистику продаж
func (h *TicketHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.ticketService.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetCategorySales возвращает продажи по категориям мероприятия
func (h *TicketHandler) GetCategorySales(c *gin.Context) {
	eventID := c.Param("id")

	sales, err := h.ticketService.GetCategorySales(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sales)
}

// GetRecentTickets возвращает последние покупки
func (h *TicketHandler) GetRecentTickets(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	tickets, err := h.ticketService.GetRecentTickets(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}
