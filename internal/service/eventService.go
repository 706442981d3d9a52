package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	repository "github.com/jsquare/astra-tickets/internal/database/postgres"
	"github.com/jsquare/astra-tickets/internal/entity"
)

type eventService struct {
	eventRepo    repository.EventRepository
	categoryRepo repository.CategoryRepository
	cache        AvailabilityCache
}

// NewEventService создает новый экземпляр EventService
func NewEventService(
	eventRepo repository.EventRepository,
	categoryRepo repository.CategoryRepository,
	cache AvailabilityCache,
) EventService {
	return &eventService{
		eventRepo:    eventRepo,
		categoryRepo: categoryRepo,
		cache:        cache,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error) {
	if req.Date.Before(time.Now()) {
		return nil, fmt.Errorf("%w: event date is in the past", entity.ErrInvalidInput)
	}

	event := &entity.Event{
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Venue:       req.Venue,
		Location:    req.Location,
		HasTickets:  req.HasTickets,
		IsActive:    true,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"slug":     event.Slug,
	}).Info("Event created")

	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*entity.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

func (s *eventService) GetEventBySlug(ctx context.Context, slug string) (*entity.Event, error) {
	return s.eventRepo.GetBySlug(ctx, slug)
}

func (s *eventService) GetAllEvents(ctx context.Context, onlyActive bool) ([]*entity.Event, error) {
	return s.eventRepo.GetAll(ctx, onlyActive)
}

func (s *eventService) UpdateEvent(ctx context.Context, id string, req *UpdateEventRequest) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Slug != nil {
		event.Slug = *req.Slug
	}
	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Date != nil {
		event.Date = *req.Date
	}
	if req.Venue != nil {
		event.Venue = *req.Venue
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.HasTickets != nil {
		event.HasTickets = *req.HasTickets
	}
	if req.IsActive != nil {
		event.IsActive = *req.IsActive
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(id)
	logrus.Infof("Event %s deactivated", id)
	return nil
}

func (s *eventService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*entity.TicketCategory, error) {
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", entity.ErrInvalidInput)
	}

	// Мероприятие должно существовать до создания категории
	if _, err := s.eventRepo.GetByID(ctx, req.EventID); err != nil {
		return nil, err
	}

	category := &entity.TicketCategory{
		EventID:     req.EventID,
		Name:        req.Name,
		Price:       req.Price,
		TotalSeats:  req.TotalSeats,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.invalidate(req.EventID)

	logrus.WithFields(logrus.Fields{
		"category_id": category.ID,
		"event_id":    category.EventID,
		"total_seats": category.TotalSeats,
	}).Info("Ticket category created")

	return category, nil
}

func (s *eventService) GetEventCategories(ctx context.Context, eventID string) ([]*entity.TicketCategory, error) {
	return s.categoryRepo.GetByEventID(ctx, eventID)
}

func (s *eventService) UpdateCategory(ctx context.Context, id string, req *UpdateCategoryRequest) (*entity.TicketCategory, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price cannot be negative", entity.ErrInvalidInput)
		}
		category.Price = *req.Price
	}
	if req.TotalSeats != nil {
		category.TotalSeats = *req.TotalSeats
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}

	s.invalidate(category.EventID)
	return category, nil
}

// GetAvailability возвращает снимок остатка мест, через кеш при
// наличии. Снимок может устареть к моменту покупки, это ожидаемо.
func (s *eventService) GetAvailability(ctx context.Context, eventID string) ([]*entity.CategoryAvailability, error) {
	if s.cache != nil {
		if snapshot, err := s.cache.Get(ctx, eventID); err == nil {
			s.trackPopularity(ctx, eventID)
			return snapshot, nil
		}
	}

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	availability, err := s.categoryRepo.GetAvailability(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, eventID, availability); err != nil {
			logrus.Warnf("Failed to cache availability for event %s: %s", eventID, err.Error())
		}
		s.trackPopularity(ctx, eventID)
	}

	return availability, nil
}

// Счетчик просмотров не влияет на ответ, ошибки не всплывают
func (s *eventService) trackPopularity(ctx context.Context, eventID string) {
	if err := s.cache.TrackPopularEvent(ctx, eventID); err != nil {
		logrus.Debugf("Failed to track popularity for event %s: %s", eventID, err.Error())
	}
}

// GetPopularEvents возвращает мероприятия по убыванию числа просмотров
// доступности. Без кеша рейтинг не ведется и список пуст.
func (s *eventService) GetPopularEvents(ctx context.Context, limit int) ([]*entity.Event, error) {
	if s.cache == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	ids, err := s.cache.GetPopularEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load popular events: %w", err)
	}

	events := make([]*entity.Event, 0, len(ids))
	for _, id := range ids {
		event, err := s.eventRepo.GetByID(ctx, id)
		if errors.Is(err, entity.ErrEventNotFound) {
			// Удаленные мероприятия могут оставаться в рейтинге
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, nil
}

// RefreshEvent перечитывает остаток мест из базы и обновляет кеш
func (s *eventService) RefreshEvent(ctx context.Context, eventID string) error {
	if s.cache == nil {
		return nil
	}

	availability, err := s.categoryRepo.GetAvailability(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load availability: %w", err)
	}

	return s.cache.Set(ctx, eventID, availability)
}

func (s *eventService) invalidate(eventID string) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		logrus.Warnf("Failed to invalidate availability cache for event %s: %s", eventID, err.Error())
	}
}
