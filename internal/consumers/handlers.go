package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"evently/internal/apperrors"
	"evently/internal/metrics"
	"evently/internal/models"

	"github.com/nats-io/stan.go"
)

// Ledger is the slice of the booking repository the worker needs.
type Ledger interface {
	FinalizeBooking(ctx context.Context, bookingID int64) (booking *models.Booking, changed bool, err error)
	FailProcessing(ctx context.Context, id int64) (changed bool, err error)
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
}

// CacheInvalidator drops the availability cache entry of an event.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, eventID int64) error
}

// Notifier is the notification dispatcher boundary.
type Notifier interface {
	NotifyBooking(n models.BookingNotification) error
}

type Handlers struct {
	ledger   Ledger
	cache    CacheInvalidator
	notifier Notifier
}

func NewHandlers(ledger Ledger, cache CacheInvalidator, notifier Notifier) *Handlers {
	return &Handlers{
		ledger:   ledger,
		cache:    cache,
		notifier: notifier,
	}
}

// HandleConfirmBooking consumes one confirmation job. The queue delivers
// at least once, so everything in here must tolerate redelivery. The
// message is acked even when processing fails: error recovery is owned by
// the failed-status fallback and the reconciliation sweep, not by broker
// retries.
func (h *Handlers) HandleConfirmBooking(msg *stan.Msg) {
	defer func() {
		if err := msg.Ack(); err != nil {
			slog.Error("Failed to ack confirmation job", "error", err)
		}
	}()

	var job models.ConfirmBookingMessage
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		slog.Error("Dropping malformed confirmation job", "error", err)
		return
	}

	h.ProcessConfirmation(context.Background(), job)
}

// ProcessConfirmation finalizes the booking and emits the side effects of
// its terminal status.
func (h *Handlers) ProcessConfirmation(ctx context.Context, job models.ConfirmBookingMessage) {
	booking, changed, err := h.ledger.FinalizeBooking(ctx, job.BookingID)
	if err != nil {
		if errors.Is(err, apperrors.ErrBookingNotFound) {
			slog.Error("Confirmation job for unknown booking",
				"booking_id", job.BookingID, "job_id", job.JobID)
			return
		}

		slog.Error("Failed to finalize booking",
			"error", err, "booking_id", job.BookingID, "job_id", job.JobID)

		h.failBooking(ctx, job)
		return
	}

	if !changed {
		// Redelivery of an already-terminal booking.
		slog.Info("Skipping terminal booking",
			"booking_id", booking.ID, "status", booking.Status, "job_id", job.JobID)
		return
	}

	metrics.ConfirmationsTotal.WithLabelValues(booking.Status).Inc()
	slog.Info("Finalized booking",
		"booking_id", booking.ID, "event_id", booking.EventID,
		"status", booking.Status, "ticket_count", booking.TicketCount)

	if err := h.cache.Invalidate(ctx, booking.EventID); err != nil {
		slog.Error("Failed to invalidate availability cache",
			"error", err, "event_id", booking.EventID)
	}

	h.notify(booking)
}

// failBooking is the best-effort downgrade after a finalization error. If
// the failed write itself fails the booking stays in processing and the
// reconciliation sweep re-runs the confirmation later; that is logged
// loudly rather than treated as success. The write only applies while the
// booking is still processing, so a cancellation that slipped in between
// the finalize error and this fallback is never overwritten.
func (h *Handlers) failBooking(ctx context.Context, job models.ConfirmBookingMessage) {
	changed, err := h.ledger.FailProcessing(ctx, job.BookingID)
	if err != nil {
		slog.Error("CRITICAL: booking left in processing, awaiting reconciliation",
			"error", err, "booking_id", job.BookingID, "job_id", job.JobID)
		return
	}
	if !changed {
		slog.Info("Skipping failed-status fallback, booking no longer processing",
			"booking_id", job.BookingID, "job_id", job.JobID)
		return
	}

	metrics.ConfirmationsTotal.WithLabelValues(models.BookingStatusFailed).Inc()

	if err := h.cache.Invalidate(ctx, job.EventID); err != nil {
		slog.Error("Failed to invalidate availability cache",
			"error", err, "event_id", job.EventID)
	}

	booking, err := h.ledger.GetByID(ctx, job.BookingID)
	if err != nil || booking == nil {
		slog.Error("Cannot notify failed booking", "error", err, "booking_id", job.BookingID)
		return
	}
	h.notify(booking)
}

func (h *Handlers) notify(booking *models.Booking) {
	if err := h.notifier.NotifyBooking(models.BookingNotification{
		BookingID:   booking.ID,
		EventID:     booking.EventID,
		UserID:      booking.UserID,
		Status:      booking.Status,
		TicketCount: booking.TicketCount,
		TotalAmount: booking.TotalAmount,
		Timestamp:   time.Now(),
	}); err != nil {
		slog.Error("Failed to publish booking notification",
			"error", err, "booking_id", booking.ID, "status", booking.Status)
	}
}
