package apperrors

import (
	"errors"
	"fmt"
)

var ErrEventNotFound = errors.New("event not found")
var ErrEventInactive = errors.New("event is not open for booking")
var ErrUserNotFound = errors.New("user not found")
var ErrBookingNotFound = errors.New("booking not found")
var ErrInvalidTicketCount = errors.New("ticket count must be at least 1")
var ErrRateLimited = errors.New("booking rate limit exceeded")
var ErrReservationInProgress = errors.New("a reservation for this event is already in progress")
var ErrAlreadyCancelled = errors.New("booking is already cancelled")
var ErrEventHasBookings = errors.New("event has confirmed bookings")
var ErrBookingNotCancellable = errors.New("booking is in a terminal state and cannot be cancelled")

// InsufficientTicketsError is returned when a reservation asks for more
// tickets than the event currently has available.
type InsufficientTicketsError struct {
	Available int
	Requested int
}

func (e *InsufficientTicketsError) Error() string {
	return fmt.Sprintf("insufficient tickets: available %d, requested %d", e.Available, e.Requested)
}

// IsInsufficientTickets reports whether err is an InsufficientTicketsError
// and returns it if so.
func IsInsufficientTickets(err error) (*InsufficientTicketsError, bool) {
	var ite *InsufficientTicketsError
	if errors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}
