package models

import "time"

// CreateEventRequest - request body for creating an event
type CreateEventRequest struct {
	Name           string    `json:"name" binding:"required"`
	Description    *string   `json:"description,omitempty"`
	Venue          string    `json:"venue" binding:"required"`
	StartsAt       time.Time `json:"starts_at" binding:"required"`
	Capacity       int       `json:"capacity" binding:"required,gt=0"`
	PricePerTicket int64     `json:"price_per_ticket" binding:"gte=0"`
}

// CreateEventResponse - response body for event creation
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// UpdateEventRequest - request body for a partial event update
type UpdateEventRequest struct {
	Name           *string    `json:"name,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Venue          *string    `json:"venue,omitempty"`
	StartsAt       *time.Time `json:"starts_at,omitempty"`
	Capacity       *int       `json:"capacity,omitempty" binding:"omitempty,gt=0"`
	PricePerTicket *int64     `json:"price_per_ticket,omitempty" binding:"omitempty,gte=0"`
	Active         *bool      `json:"active,omitempty"`
}

// DeleteEventResponse - response body for event deletion
type DeleteEventResponse struct {
	EventID int64  `json:"event_id"`
	Status  string `json:"status"`
}

// ListEventsResponseItem - one entry of the event list
type ListEventsResponseItem struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
	Active   bool      `json:"active"`
}

// ListEventsResponse - event list
type ListEventsResponse []ListEventsResponseItem

// CreateBookingRequest - request body for reserving tickets
type CreateBookingRequest struct {
	EventID     int64 `json:"event_id" binding:"required"`
	TicketCount int   `json:"ticket_count" binding:"required"`
}

// CreateBookingResponse - response body for a reservation. The booking is
// returned in processing status; the terminal status arrives asynchronously.
type CreateBookingResponse struct {
	ID          int64   `json:"id"`
	EventID     int64   `json:"event_id"`
	TicketCount int     `json:"ticket_count"`
	TotalAmount int64   `json:"total_amount"`
	Status      string  `json:"status"`
	TaskID      *string `json:"task_id,omitempty"`
}

// CancelBookingRequest - request body for cancelling a booking
type CancelBookingRequest struct {
	BookingID int64 `json:"booking_id" binding:"required"`
}

// CancelBookingResponse - response body for a cancellation
type CancelBookingResponse struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
}

// ListBookingsResponseItem - one entry of the booking history
type ListBookingsResponseItem struct {
	ID          int64     `json:"id"`
	EventID     int64     `json:"event_id"`
	TicketCount int       `json:"ticket_count"`
	TotalAmount int64     `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListBookingsResponse - booking history
type ListBookingsResponse []ListBookingsResponseItem

// PopularEvent - one entry of the most-booked ranking
type PopularEvent struct {
	EventID  int64  `json:"event_id"`
	Name     string `json:"name"`
	Bookings int    `json:"bookings"`
}

// CapacityUtilization - confirmed ticket share of an event's capacity
type CapacityUtilization struct {
	EventID               int64   `json:"event_id"`
	Name                  string  `json:"name"`
	UtilizationPercentage float64 `json:"utilization_percentage"`
}

// AnalyticsOverview - cross-event booking analytics
type AnalyticsOverview struct {
	TotalBookings       int                   `json:"total_bookings"`
	MostPopularEvents   []PopularEvent        `json:"most_popular_events"`
	CapacityUtilization []CapacityUtilization `json:"capacity_utilization"`
}

// DailyBookings - confirmed bookings on one day
type DailyBookings struct {
	Date     string `json:"date"`
	Bookings int    `json:"bookings"`
}

// EventAnalytics - per-event booking analytics
type EventAnalytics struct {
	EventID          int64           `json:"event_id"`
	TotalBookings    int             `json:"total_bookings"`
	CancellationRate float64         `json:"cancellation_rate"`
	DailyBookings    []DailyBookings `json:"daily_bookings"`
}

// CreateUserRequest - request body for user registration
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
}

// CreateUserResponse - response body for user registration
type CreateUserResponse struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}
