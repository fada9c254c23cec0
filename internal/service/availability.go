package service

import (
	"context"
	"encoding/json"
	"time"

	"evently/internal/apperrors"
	"evently/internal/kv"
	"evently/internal/logger"
	"evently/internal/metrics"
	"evently/internal/models"
)

// AvailabilityService serves derived availability through a short-TTL
// read-through cache. The reservation path never consults it; staleness
// here is tolerated because the locked recomputation in the ledger is the
// only authority for admitting a booking.
type AvailabilityService struct {
	events EventStore
	ledger Ledger
	store  kv.Store
	ttl    time.Duration
}

func NewAvailabilityService(events EventStore, ledger Ledger, store kv.Store, ttl time.Duration) *AvailabilityService {
	return &AvailabilityService{
		events: events,
		ledger: ledger,
		store:  store,
		ttl:    ttl,
	}
}

// Get returns the event's availability, served from cache within the TTL.
// A cache read failure degrades to the unlocked ledger computation.
func (s *AvailabilityService) Get(ctx context.Context, eventID int64) (*models.Availability, error) {
	key := availabilityKey(eventID)

	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		logger.WithContext(ctx).Warn("Availability cache read failed",
			"error", err, "event_id", eventID)
	} else if ok {
		var availability models.Availability
		if err := json.Unmarshal([]byte(raw), &availability); err == nil {
			availability.Cached = true
			metrics.AvailabilityCacheRequests.WithLabelValues("hit").Inc()
			return &availability, nil
		}
		logger.WithContext(ctx).Warn("Dropping corrupt availability cache entry",
			"event_id", eventID)
		_ = s.store.Delete(ctx, key)
	}
	metrics.AvailabilityCacheRequests.WithLabelValues("miss").Inc()

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	confirmedSum, err := s.ledger.ConfirmedTicketSum(ctx, eventID, 0)
	if err != nil {
		return nil, err
	}

	availability := &models.Availability{
		EventID:      eventID,
		Available:    max(0, event.Capacity-confirmedSum),
		Capacity:     event.Capacity,
		ConfirmedSum: confirmedSum,
	}

	if raw, err := json.Marshal(availability); err == nil {
		if err := s.store.Set(ctx, key, string(raw), s.ttl); err != nil {
			logger.WithContext(ctx).Warn("Availability cache write failed",
				"error", err, "event_id", eventID)
		}
	}

	return availability, nil
}

// Invalidate deletes the cache entry so the next read recomputes from the
// ledger. Called whenever a booking reaches a terminal status.
func (s *AvailabilityService) Invalidate(ctx context.Context, eventID int64) error {
	return s.store.Delete(ctx, availabilityKey(eventID))
}
