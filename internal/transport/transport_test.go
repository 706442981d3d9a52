package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsquare/astra-tickets/internal/entity"
	"github.com/jsquare/astra-tickets/internal/service"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid quantity", err: entity.ErrInvalidQuantity, status: http.StatusBadRequest},
		{name: "wrapped invalid quantity", err: errors.Join(errors.New("ctx"), entity.ErrInvalidQuantity), status: http.StatusBadRequest},
		{name: "inactive event", err: entity.ErrEventInactive, status: http.StatusBadRequest},
		{name: "category mismatch", err: entity.ErrCategoryMismatch, status: http.StatusBadRequest},
		{name: "event not found", err: entity.ErrEventNotFound, status: http.StatusNotFound},
		{name: "category not found", err: entity.ErrCategoryNotFound, status: http.StatusNotFound},
		{name: "ticket not found", err: entity.ErrTicketNotFound, status: http.StatusNotFound},
		{name: "not enough seats", err: entity.ErrNotEnoughSeats, status: http.StatusConflict},
		{name: "already used", err: entity.ErrTicketAlreadyUsed, status: http.StatusConflict},
		{name: "concurrent update", err: entity.ErrConcurrentUpdate, status: http.StatusConflict},
		{name: "forbidden", err: entity.ErrForbidden, status: http.StatusForbidden},
		{name: "unknown error", err: errors.New("disk on fire"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusFromError(tt.err))
		})
	}
}

// stubTicketService возвращает заранее заданный результат покупки
type stubTicketService struct {
	service.TicketService

	result *entity.PurchaseResult
	err    error
}

func (s *stubTicketService) PurchaseTicket(ctx context.Context, req *service.PurchaseTicketRequest) (*entity.PurchaseResult, error) {
	return s.result, s.err
}

func purchaseRequest(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler := NewTicketHandler(&stubTicketService{
		result: &entity.PurchaseResult{
			TicketID:          "ticket-1",
			TicketNumber:      "ASTRA-MF3K2V1X-A7Q9ZC",
			NewAvailableSeats: 7,
		},
	})
	router.POST("/api/v1/tickets", handler.PurchaseTicket)

	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestPurchaseTicketHandler_Success(t *testing.T) {
	w := purchaseRequest(t, map[string]interface{}{
		"user_id":     "u1",
		"event_id":    "e1",
		"category_id": "c1",
		"quantity":    3,
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestPurchaseTicketHandler_MissingFields(t *testing.T) {
	// binding:"required" отклоняет запрос без user_id
	w := purchaseRequest(t, map[string]interface{}{
		"event_id": "e1",
		"quantity": 1,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPurchaseTicketHandler_NotEnoughSeats(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler := NewTicketHandler(&stubTicketService{err: entity.ErrNotEnoughSeats})
	router.POST("/api/v1/tickets", handler.PurchaseTicket)

	body := []byte(`{"user_id":"u1","event_id":"e1","category_id":"c1","quantity":2}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "not enough")
}
