package models

import (
	"time"
)

// Booking status values. A booking starts as processing and is finalized
// by the confirmation worker. failed and cancelled are terminal; confirmed
// may still transition to cancelled by user action.
const (
	BookingStatusProcessing = "processing"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusFailed     = "failed"
	BookingStatusCancelled  = "cancelled"
)

// User represents a user in the system
type User struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// Event represents an event with a fixed ticket capacity. Availability is
// never stored on the row; it is derived from the confirmed bookings.
type Event struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    *string   `json:"description" db:"description"`
	Venue          string    `json:"venue" db:"venue"`
	StartsAt       time.Time `json:"starts_at" db:"starts_at"`
	Capacity       int       `json:"capacity" db:"capacity"`
	PricePerTicket int64     `json:"price_per_ticket" db:"price_per_ticket"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Booking represents a ticket booking in the system
type Booking struct {
	ID          int64     `json:"id" db:"id"`
	EventID     int64     `json:"event_id" db:"event_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	TicketCount int       `json:"ticket_count" db:"ticket_count"`
	TotalAmount int64     `json:"total_amount" db:"total_amount"`
	Status      string    `json:"status" db:"status"`
	TaskID      *string   `json:"task_id,omitempty" db:"task_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether the confirmation worker is done with this
// booking. Redelivered jobs for a terminal booking must be no-ops.
func (b *Booking) Terminal() bool {
	return b.Status != BookingStatusProcessing
}

// Availability is the derived ticket availability of an event.
// Cached marks whether the value was served from the availability cache.
type Availability struct {
	EventID      int64 `json:"event_id"`
	Available    int   `json:"available_tickets"`
	Capacity     int   `json:"total_capacity"`
	ConfirmedSum int   `json:"confirmed_bookings"`
	Cached       bool  `json:"cached"`
}
