package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"evently/internal/apperrors"
	"evently/internal/config"
	"evently/internal/kv"
	"evently/internal/logger"
	"evently/internal/metrics"
	"evently/internal/models"
)

// BookingService is the reservation coordinator. Reserve runs on the
// request path and only prevents overcommitting at creation time; the
// confirmation worker performs the same capacity check again before a
// booking becomes confirmed.
type BookingService struct {
	ledger       Ledger
	users        UserStore
	store        kv.Store
	queue        ConfirmationQueue
	notifier     Notifier
	availability *AvailabilityService
	cfg          config.BookingConfig
}

func NewBookingService(ledger Ledger, users UserStore, store kv.Store, queue ConfirmationQueue, notifier Notifier, availability *AvailabilityService, cfg config.BookingConfig) *BookingService {
	return &BookingService{
		ledger:       ledger,
		users:        users,
		store:        store,
		queue:        queue,
		notifier:     notifier,
		availability: availability,
		cfg:          cfg,
	}
}

// Reserve creates a processing booking after the locked capacity check and
// enqueues its confirmation job. When enqueueing fails after the reserve
// transaction committed, the booking is returned together with the error;
// the reconciliation sweep re-enqueues it later.
func (s *BookingService) Reserve(ctx context.Context, eventID, userID int64, ticketCount int) (*models.Booking, error) {
	if ticketCount < 1 {
		metrics.ReservationsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.ErrInvalidTicketCount
	}

	// Every attempt counts against the fixed window, rejected ones included.
	count, err := s.store.Incr(ctx, rateLimitKey(userID), s.cfg.RateLimitWindow)
	if err != nil {
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if count > int64(s.cfg.RateLimitMax) {
		metrics.ReservationsTotal.WithLabelValues("rate_limited").Inc()
		return nil, apperrors.ErrRateLimited
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	if user == nil || !user.IsActive {
		metrics.ReservationsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.ErrUserNotFound
	}

	// Advisory duplicate-request lock. The TTL is a safety net against a
	// crashed holder; the normal path releases it on every exit below.
	lockKey := reservationLockKey(eventID, userID)
	acquired, err := s.store.SetIfAbsent(ctx, lockKey, strconv.FormatInt(time.Now().Unix(), 10), s.cfg.ReservationLockTTL)
	if err != nil {
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("acquire reservation lock: %w", err)
	}
	if !acquired {
		metrics.ReservationsTotal.WithLabelValues("in_progress").Inc()
		return nil, apperrors.ErrReservationInProgress
	}
	defer func() {
		// The request context is cancelled when the client disconnects;
		// the release must still reach the store or the pair stays locked
		// for the full TTL.
		if err := s.store.Delete(context.WithoutCancel(ctx), lockKey); err != nil {
			logger.WithContext(ctx).Error("Failed to release reservation lock",
				"error", err, "key", lockKey)
		}
	}()

	booking, err := s.ledger.ReserveTickets(ctx, eventID, userID, ticketCount)
	if err != nil {
		if _, ok := apperrors.IsInsufficientTickets(err); ok {
			metrics.ReservationsTotal.WithLabelValues("insufficient").Inc()
		} else {
			metrics.ReservationsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	jobID, err := s.queue.EnqueueConfirmation(booking.ID, booking.EventID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to enqueue confirmation job",
			"error", err, "booking_id", booking.ID)
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
		return booking, fmt.Errorf("booking %d reserved but confirmation enqueue failed: %w", booking.ID, err)
	}

	if err := s.ledger.SetTaskID(ctx, booking.ID, jobID); err != nil {
		// The job reference is informational; the job itself is already queued.
		logger.WithContext(ctx).Error("Failed to store confirmation job id",
			"error", err, "booking_id", booking.ID, "job_id", jobID)
	}
	booking.TaskID = &jobID

	metrics.ReservationsTotal.WithLabelValues("reserved").Inc()
	logger.WithContext(ctx).Info("Reserved tickets",
		"booking_id", booking.ID, "event_id", eventID,
		"user_id", userID, "ticket_count", ticketCount, "job_id", jobID)

	return booking, nil
}

// Cancel cancels a booking from processing or confirmed. Availability is
// restored implicitly: the next confirmed-sum recomputation no longer sees
// the booking.
func (s *BookingService) Cancel(ctx context.Context, bookingID int64) (*models.Booking, error) {
	booking, err := s.ledger.CancelBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.availability.Invalidate(ctx, booking.EventID); err != nil {
		logger.WithContext(ctx).Error("Failed to invalidate availability cache",
			"error", err, "event_id", booking.EventID)
	}

	if err := s.notifier.NotifyBooking(models.BookingNotification{
		BookingID:   booking.ID,
		EventID:     booking.EventID,
		UserID:      booking.UserID,
		Status:      booking.Status,
		TicketCount: booking.TicketCount,
		TotalAmount: booking.TotalAmount,
		Timestamp:   time.Now(),
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish cancellation notification",
			"error", err, "booking_id", booking.ID)
	}

	metrics.CancellationsTotal.Inc()
	logger.WithContext(ctx).Info("Cancelled booking",
		"booking_id", booking.ID, "event_id", booking.EventID)

	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, bookingID int64) (*models.Booking, error) {
	booking, err := s.ledger.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", bookingID, err)
	}
	if booking == nil {
		return nil, apperrors.ErrBookingNotFound
	}
	return booking, nil
}

func (s *BookingService) List(ctx context.Context, userID int64) ([]models.Booking, error) {
	bookings, err := s.ledger.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for user %d: %w", userID, err)
	}
	return bookings, nil
}
