package jobs

import (
	"context"
	"log/slog"
	"time"

	"evently/internal/models"
)

// Enqueuer re-enqueues confirmation jobs.
type Enqueuer interface {
	EnqueueConfirmation(bookingID, eventID int64) (string, error)
}

// BookingScanner is the slice of the booking repository the sweep needs.
type BookingScanner interface {
	GetStuckProcessing(ctx context.Context, olderThan time.Time) ([]models.Booking, error)
	SetTaskID(ctx context.Context, id int64, taskID string) error
}

// StuckBookingJob is the reconciliation sweep for bookings that stayed in
// processing past the threshold: a lost confirmation job, an enqueue
// failure after the reserve commit, or a worker whose failed-status
// fallback also failed. Re-running the confirmation is safe because the
// worker is idempotent.
type StuckBookingJob struct {
	bookingRepo BookingScanner
	queue       Enqueuer
	threshold   time.Duration
	interval    time.Duration
	ticker      *time.Ticker
	done        chan bool
}

func NewStuckBookingJob(bookingRepo BookingScanner, queue Enqueuer, threshold, interval time.Duration) *StuckBookingJob {
	return &StuckBookingJob{
		bookingRepo: bookingRepo,
		queue:       queue,
		threshold:   threshold,
		interval:    interval,
		done:        make(chan bool),
	}
}

// Start begins the periodic sweep
func (j *StuckBookingJob) Start(ctx context.Context) {
	slog.Info("Starting stuck booking reconciliation job",
		"check_interval", j.interval.String(), "threshold", j.threshold.String())

	j.ticker = time.NewTicker(j.interval)

	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Stuck booking reconciliation job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the job
func (j *StuckBookingJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *StuckBookingJob) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-j.threshold)

	stuck, err := j.bookingRepo.GetStuckProcessing(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to scan for stuck bookings", "error", err)
		return
	}

	if len(stuck) == 0 {
		slog.Debug("No stuck bookings found")
		return
	}

	slog.Info("Found stuck bookings to reconcile", "count", len(stuck))

	for _, booking := range stuck {
		jobID, err := j.queue.EnqueueConfirmation(booking.ID, booking.EventID)
		if err != nil {
			slog.Error("Failed to re-enqueue stuck booking",
				"error", err,
				"booking_id", booking.ID,
				"event_id", booking.EventID,
				"stuck_for", time.Since(booking.CreatedAt).String())
			continue
		}

		if err := j.bookingRepo.SetTaskID(ctx, booking.ID, jobID); err != nil {
			slog.Error("Failed to update job id on stuck booking",
				"error", err, "booking_id", booking.ID, "job_id", jobID)
		}

		slog.Info("Re-enqueued stuck booking",
			"booking_id", booking.ID,
			"event_id", booking.EventID,
			"job_id", jobID,
			"stuck_for", time.Since(booking.CreatedAt).String())
	}
}
