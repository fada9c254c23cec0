package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"evently/internal/apperrors"
	"evently/internal/database"
	"evently/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ReserveTickets is the oversell-prevention boundary. It runs a single
// transaction that locks the event row, recomputes the confirmed ticket
// sum from the booking set and creates the processing booking, so no
// concurrent reservation for the same event can interleave between the
// availability read and the booking write.
func (r *BookingRepository) ReserveTickets(ctx context.Context, eventID, userID int64, ticketCount int) (*models.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reserve tx: %w", err)
	}
	defer tx.Rollback()

	var capacity int
	var pricePerTicket int64
	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT capacity, price_per_ticket, active FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&capacity, &pricePerTicket, &active)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock event %d: %w", eventID, err)
	}
	if !active {
		return nil, apperrors.ErrEventInactive
	}

	var confirmedSum int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ticket_count), 0) FROM bookings WHERE event_id = $1 AND status = $2`,
		eventID, models.BookingStatusConfirmed,
	).Scan(&confirmedSum)
	if err != nil {
		return nil, fmt.Errorf("confirmed sum for event %d: %w", eventID, err)
	}

	available := capacity - confirmedSum
	if available < ticketCount {
		return nil, &apperrors.InsufficientTicketsError{Available: available, Requested: ticketCount}
	}

	booking := &models.Booking{
		EventID:     eventID,
		UserID:      userID,
		TicketCount: ticketCount,
		TotalAmount: pricePerTicket * int64(ticketCount),
		Status:      models.BookingStatusProcessing,
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO bookings (event_id, user_id, ticket_count, total_amount, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		booking.EventID, booking.UserID, booking.TicketCount, booking.TotalAmount, booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reserve tx: %w", err)
	}

	return booking, nil
}

// FinalizeBooking performs the second capacity check under lock and moves
// the booking to confirmed or failed. Lock order is booking row first,
// then event row, the same across all workers. Already-terminal bookings
// are left untouched and reported with changed=false, which makes job
// redelivery a no-op.
func (r *BookingRepository) FinalizeBooking(ctx context.Context, bookingID int64) (booking *models.Booking, changed bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer tx.Rollback()

	booking = &models.Booking{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, ticket_count, total_amount, status, task_id, created_at, updated_at
		 FROM bookings WHERE id = $1 FOR UPDATE`,
		bookingID,
	).Scan(
		&booking.ID, &booking.EventID, &booking.UserID, &booking.TicketCount,
		&booking.TotalAmount, &booking.Status, &booking.TaskID,
		&booking.CreatedAt, &booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, false, apperrors.ErrBookingNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock booking %d: %w", bookingID, err)
	}

	if booking.Terminal() {
		return booking, false, nil
	}

	var capacity int
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`,
		booking.EventID,
	).Scan(&capacity)
	if err != nil {
		return nil, false, fmt.Errorf("lock event %d: %w", booking.EventID, err)
	}

	// The booking under review is still processing and so never part of
	// this sum; the explicit exclusion keeps that independent of status.
	var confirmedSum int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ticket_count), 0) FROM bookings
		 WHERE event_id = $1 AND status = $2 AND id <> $3`,
		booking.EventID, models.BookingStatusConfirmed, booking.ID,
	).Scan(&confirmedSum)
	if err != nil {
		return nil, false, fmt.Errorf("confirmed sum for event %d: %w", booking.EventID, err)
	}

	status := models.BookingStatusFailed
	if capacity-confirmedSum >= booking.TicketCount {
		status = models.BookingStatusConfirmed
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, booking.ID,
	); err != nil {
		return nil, false, fmt.Errorf("update booking %d: %w", booking.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit finalize tx: %w", err)
	}

	booking.Status = status
	return booking, true, nil
}

// CancelBooking cancels a booking under a row lock. Valid from processing
// and confirmed; cancelled and failed are terminal.
func (r *BookingRepository) CancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback()

	booking := &models.Booking{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, ticket_count, total_amount, status, task_id, created_at, updated_at
		 FROM bookings WHERE id = $1 FOR UPDATE`,
		bookingID,
	).Scan(
		&booking.ID, &booking.EventID, &booking.UserID, &booking.TicketCount,
		&booking.TotalAmount, &booking.Status, &booking.TaskID,
		&booking.CreatedAt, &booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock booking %d: %w", bookingID, err)
	}

	switch booking.Status {
	case models.BookingStatusCancelled:
		return nil, apperrors.ErrAlreadyCancelled
	case models.BookingStatusFailed:
		return nil, apperrors.ErrBookingNotCancellable
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`,
		models.BookingStatusCancelled, booking.ID,
	); err != nil {
		return nil, fmt.Errorf("update booking %d: %w", booking.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel tx: %w", err)
	}

	booking.Status = models.BookingStatusCancelled
	return booking, nil
}

// ConfirmedTicketSum recomputes the confirmed ticket sum without locks.
// Only the cache-miss path uses this; reservation and confirmation always
// recompute inside their own transactions.
func (r *BookingRepository) ConfirmedTicketSum(ctx context.Context, eventID, excludeBookingID int64) (int, error) {
	var sum int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ticket_count), 0) FROM bookings
		 WHERE event_id = $1 AND status = $2 AND id <> $3`,
		eventID, models.BookingStatusConfirmed, excludeBookingID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("confirmed sum for event %d: %w", eventID, err)
	}
	return sum, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		SELECT id, event_id, user_id, ticket_count, total_amount, status, task_id, created_at, updated_at
		FROM bookings
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID, &booking.EventID, &booking.UserID, &booking.TicketCount,
		&booking.TotalAmount, &booking.Status, &booking.TaskID,
		&booking.CreatedAt, &booking.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

func (r *BookingRepository) GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `
		SELECT id, event_id, user_id, ticket_count, total_amount, status, task_id, created_at, updated_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID, &booking.EventID, &booking.UserID, &booking.TicketCount,
			&booking.TotalAmount, &booking.Status, &booking.TaskID,
			&booking.CreatedAt, &booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// SetTaskID stores the confirmation job reference on the booking.
func (r *BookingRepository) SetTaskID(ctx context.Context, id int64, taskID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET task_id = $1, updated_at = NOW() WHERE id = $2`,
		taskID, id)
	return err
}

// FailProcessing downgrades a processing booking to failed. The status
// predicate keeps this fallback from touching a booking that reached a
// terminal status through another path in the meantime, such as a
// concurrent cancellation. changed reports whether the row was updated.
func (r *BookingRepository) FailProcessing(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		models.BookingStatusFailed, id, models.BookingStatusProcessing)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetStuckProcessing returns bookings still in processing older than the
// given cutoff, for the reconciliation sweep.
func (r *BookingRepository) GetStuckProcessing(ctx context.Context, olderThan time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `
		SELECT id, event_id, user_id, ticket_count, total_amount, status, task_id, created_at, updated_at
		FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.BookingStatusProcessing, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID, &booking.EventID, &booking.UserID, &booking.TicketCount,
			&booking.TotalAmount, &booking.Status, &booking.TaskID,
			&booking.CreatedAt, &booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
