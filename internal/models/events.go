package models

import "time"

// Queue subjects
const (
	SubjectBookingConfirm     = "booking.confirm"
	SubjectBookingNotification = "booking.notification"
)

// ConfirmBookingMessage is the confirmation job handed from the reservation
// path to the worker. JobID doubles as the booking's task reference.
type ConfirmBookingMessage struct {
	JobID     string    `json:"job_id"`
	BookingID int64     `json:"booking_id"`
	EventID   int64     `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingNotification carries a terminal booking status to the notification
// dispatcher. Delivery mechanics live outside this system.
type BookingNotification struct {
	BookingID   int64     `json:"booking_id"`
	EventID     int64     `json:"event_id"`
	UserID      int64     `json:"user_id"`
	Status      string    `json:"status"`
	TicketCount int       `json:"ticket_count"`
	TotalAmount int64     `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}
