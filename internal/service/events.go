package service

import (
	"context"
	"fmt"

	"evently/internal/apperrors"
	"evently/internal/logger"
	"evently/internal/models"
	"evently/internal/search"
)

// EventService owns the event catalog. Postgres is authoritative (the
// reservation path row-locks event rows there); Elasticsearch is a
// best-effort read side for text search and may be absent.
type EventService struct {
	events       EventStore
	ledger       Ledger
	availability *AvailabilityService
	es           *search.ElasticsearchClient
}

func NewEventService(events EventStore, ledger Ledger, availability *AvailabilityService, es *search.ElasticsearchClient) *EventService {
	return &EventService{events: events, ledger: ledger, availability: availability, es: es}
}

func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	event := &models.Event{
		Name:           req.Name,
		Description:    req.Description,
		Venue:          req.Venue,
		StartsAt:       req.StartsAt,
		Capacity:       req.Capacity,
		PricePerTicket: req.PricePerTicket,
		Active:         true,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if s.es != nil {
		if err := s.es.IndexEvent(ctx, event); err != nil {
			// The catalog row is committed; the search index catches up on
			// the next reindex.
			logger.WithContext(ctx).Error("Failed to index event",
				"error", err, "event_id", event.ID)
		}
	}

	return event, nil
}

// Update applies the non-nil fields of req. A capacity change does not
// touch existing bookings; availability is derived, so the next read
// reflects the new capacity once the cache entry is dropped.
func (s *EventService) Update(ctx context.Context, id int64, req *models.UpdateEventRequest) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Description != nil {
		event.Description = req.Description
	}
	if req.Venue != nil {
		event.Venue = *req.Venue
	}
	if req.StartsAt != nil {
		event.StartsAt = *req.StartsAt
	}
	if req.Capacity != nil {
		event.Capacity = *req.Capacity
	}
	if req.PricePerTicket != nil {
		event.PricePerTicket = *req.PricePerTicket
	}
	if req.Active != nil {
		event.Active = *req.Active
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event %d: %w", id, err)
	}

	if err := s.availability.Invalidate(ctx, id); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate availability cache",
			"error", err, "event_id", id)
	}

	if s.es != nil {
		if err := s.es.IndexEvent(ctx, event); err != nil {
			logger.WithContext(ctx).Error("Failed to reindex event",
				"error", err, "event_id", id)
		}
	}

	return event, nil
}

// Delete removes an event. Events with confirmed bookings cannot be
// deleted; cancel or refund those bookings first.
func (s *EventService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	confirmedSum, err := s.ledger.ConfirmedTicketSum(ctx, id, 0)
	if err != nil {
		return fmt.Errorf("check bookings for event %d: %w", id, err)
	}
	if confirmedSum > 0 {
		return apperrors.ErrEventHasBookings
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}

	if err := s.availability.Invalidate(ctx, id); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate availability cache",
			"error", err, "event_id", id)
	}

	if s.es != nil {
		if err := s.es.DeleteEvent(ctx, id); err != nil {
			logger.WithContext(ctx).Error("Failed to remove event from search index",
				"error", err, "event_id", id)
		}
	}

	return nil
}

func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	return event, nil
}

// List returns catalog entries. Text queries are served from
// Elasticsearch when it is configured, with Postgres as the fallback.
func (s *EventService) List(ctx context.Context, query string, page, pageSize int) ([]models.Event, error) {
	if query != "" && s.es != nil {
		events, err := s.es.SearchEvents(ctx, query, page, pageSize)
		if err == nil {
			return events, nil
		}
		logger.WithContext(ctx).Error("Elasticsearch query failed, falling back to Postgres",
			"error", err, "query", query)
	}

	events, err := s.events.List(ctx, query, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
