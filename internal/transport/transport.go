package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsquare/astra-tickets/internal/entity"
	"github.com/jsquare/astra-tickets/internal/transport/middleware"
)

func InitRoutes(eventHandler *EventHandler, ticketHandler *TicketHandler) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		// Event routes
		events := api.Group("/events")
		{
			events.POST("", eventHandler.CreateEvent)
			events.GET("", eventHandler.GetAllEvents)
			events.GET("/:id", eventHandler.GetEvent)
			events.GET("/slug/:slug", eventHandler.GetEventBySlug)
			events.PUT("/:id", eventHandler.UpdateEvent)
			events.DELETE("/:id", eventHandler.DeleteEvent)

			events.POST("/:id/categories", eventHandler.CreateCategory)
			events.GET("/:id/categories", eventHandler.GetEventCategories)
			events.GET("/:id/availability", eventHandler.GetAvailability)
		}

		api.PUT("/categories/:id", eventHandler.UpdateCategory)

		// Ticket routes
		tickets := api.Group("/tickets")
		{
			tickets.POST("", ticketHandler.PurchaseTicket)
			tickets.GET("/number/:number", ticketHandler.GetTicketByNumber)
			tickets.POST("/number/:number/checkin", ticketHandler.CheckInTicket)
			tickets.POST("/:id/cancel", ticketHandler.CancelTicket)
			tickets.GET("/users/:user_id", ticketHandler.GetUserTickets)
		}

		// Admin routes
		admin := api.Group("/admin")
		{
			admin.GET("/stats", ticketHandler.GetDashboardStats)
			admin.GET("/events/:id/sales", ticketHandler.GetCategorySales)
			admin.GET("/tickets/recent", ticketHandler.GetRecentTickets)
			admin.GET("/popular-events", eventHandler.GetPopularEvents)
		}
	}

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	return router
}

// SuccessResponse представляет успешный ответ
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// respondError мапит доменные ошибки на HTTP статусы
func respondError(c *gin.Context, err error) {
	c.JSON(statusFromError(err), ErrorResponse{
		Success: false,
		Error:   err.Error(),
	})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidQuantity),
		errors.Is(err, entity.ErrInvalidInput),
		errors.Is(err, entity.ErrEventInactive),
		errors.Is(err, entity.ErrEventNoTickets),
		errors.Is(err, entity.ErrCategoryMismatch):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrEventNotFound),
		errors.Is(err, entity.ErrCategoryNotFound),
		errors.Is(err, entity.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrNotEnoughSeats),
		errors.Is(err, entity.ErrEventAlreadyExists),
		errors.Is(err, entity.ErrTicketAlreadyUsed),
		errors.Is(err, entity.ErrInvalidTicketStatus),
		errors.Is(err, entity.ErrDuplicateTicketNumber),
		errors.Is(err, entity.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
