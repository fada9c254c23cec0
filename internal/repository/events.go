package repository

import (
	"context"
	"database/sql"
	"fmt"

	"evently/internal/apperrors"
	"evently/internal/database"
	"evently/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (name, description, venue, starts_at, capacity, price_per_ticket, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.Name,
		event.Description,
		event.Venue,
		event.StartsAt,
		event.Capacity,
		event.PricePerTicket,
		event.Active,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)

	return err
}

// Update rewrites the mutable event fields. Postgres takes the row lock,
// so a concurrent reserve transaction serializes against capacity changes.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET name = $1, description = $2, venue = $3, starts_at = $4,
		    capacity = $5, price_per_ticket = $6, active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.Name,
		event.Description,
		event.Venue,
		event.StartsAt,
		event.Capacity,
		event.PricePerTicket,
		event.Active,
		event.ID,
	).Scan(&event.UpdatedAt)

	if err == sql.ErrNoRows {
		return apperrors.ErrEventNotFound
	}

	return err
}

func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, name, description, venue, starts_at, capacity, price_per_ticket, active, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.Venue,
		&event.StartsAt,
		&event.Capacity,
		&event.PricePerTicket,
		&event.Active,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

// List returns events, newest first, optionally filtered by a case
// insensitive name match. The search-heavy path goes through
// Elasticsearch; this is the authoritative fallback.
func (r *EventRepository) List(ctx context.Context, query string, page, pageSize int) ([]models.Event, error) {
	var events []models.Event
	var args []interface{}
	argIndex := 1

	sqlQuery := `
		SELECT id, name, description, venue, starts_at, capacity, price_per_ticket, active, created_at, updated_at
		FROM events
		WHERE 1=1`

	if query != "" {
		sqlQuery += fmt.Sprintf(" AND name ILIKE $%d", argIndex)
		args = append(args, "%"+query+"%")
		argIndex++
	}

	sqlQuery += " ORDER BY starts_at ASC, id ASC"

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		sqlQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.Description,
			&event.Venue,
			&event.StartsAt,
			&event.Capacity,
			&event.PricePerTicket,
			&event.Active,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
