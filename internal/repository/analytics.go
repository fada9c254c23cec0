package repository

import (
	"context"
	"math"

	"evently/internal/apperrors"
	"evently/internal/database"
	"evently/internal/models"
)

type AnalyticsRepository struct {
	db *database.DB
}

func NewAnalyticsRepository(db *database.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Overview aggregates confirmed bookings across all events: the total,
// the five most-booked events, and the confirmed-ticket share of capacity
// for every event that has confirmed bookings.
func (r *AnalyticsRepository) Overview(ctx context.Context) (*models.AnalyticsOverview, error) {
	overview := &models.AnalyticsOverview{
		MostPopularEvents:   []models.PopularEvent{},
		CapacityUtilization: []models.CapacityUtilization{},
	}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE status = $1`,
		models.BookingStatusConfirmed,
	).Scan(&overview.TotalBookings)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.name, COUNT(b.id) AS bookings
		FROM events e
		JOIN bookings b ON b.event_id = e.id AND b.status = $1
		GROUP BY e.id, e.name
		ORDER BY bookings DESC, e.id ASC
		LIMIT 5`,
		models.BookingStatusConfirmed,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.PopularEvent
		if err := rows.Scan(&p.EventID, &p.Name, &p.Bookings); err != nil {
			return nil, err
		}
		overview.MostPopularEvents = append(overview.MostPopularEvents, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	utilRows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.name, COALESCE(SUM(b.ticket_count), 0)::float / e.capacity * 100
		FROM events e
		JOIN bookings b ON b.event_id = e.id AND b.status = $1
		GROUP BY e.id, e.name, e.capacity
		ORDER BY e.id ASC`,
		models.BookingStatusConfirmed,
	)
	if err != nil {
		return nil, err
	}
	defer utilRows.Close()

	for utilRows.Next() {
		var u models.CapacityUtilization
		if err := utilRows.Scan(&u.EventID, &u.Name, &u.UtilizationPercentage); err != nil {
			return nil, err
		}
		u.UtilizationPercentage = math.Round(u.UtilizationPercentage*100) / 100
		overview.CapacityUtilization = append(overview.CapacityUtilization, u)
	}

	return overview, utilRows.Err()
}

// EventStats reports confirmed bookings, the cancellation rate over all
// attempts, and a 30-day daily confirmed-booking series for one event.
func (r *AnalyticsRepository) EventStats(ctx context.Context, eventID int64) (*models.EventAnalytics, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID,
	).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrEventNotFound
	}

	stats := &models.EventAnalytics{
		EventID:       eventID,
		DailyBookings: []models.DailyBookings{},
	}

	var attempted, cancelled int
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE status = $3)
		FROM bookings
		WHERE event_id = $1`,
		eventID, models.BookingStatusConfirmed, models.BookingStatusCancelled,
	).Scan(&attempted, &stats.TotalBookings, &cancelled)
	if err != nil {
		return nil, err
	}

	if attempted > 0 {
		rate := float64(cancelled) / float64(attempted) * 100
		stats.CancellationRate = math.Round(rate*100) / 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT TO_CHAR(DATE(created_at), 'YYYY-MM-DD'), COUNT(*)
		FROM bookings
		WHERE event_id = $1 AND status = $2 AND created_at >= NOW() - INTERVAL '30 days'
		GROUP BY DATE(created_at)
		ORDER BY DATE(created_at) ASC`,
		eventID, models.BookingStatusConfirmed,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var day models.DailyBookings
		if err := rows.Scan(&day.Date, &day.Bookings); err != nil {
			return nil, err
		}
		stats.DailyBookings = append(stats.DailyBookings, day)
	}

	return stats, rows.Err()
}
