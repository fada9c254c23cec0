package handlers

import (
	"errors"
	"net/http"

	"evently/internal/apperrors"
	"evently/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// userID extracts the authenticated user id set by the auth middleware.
func userID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is an infrastructure failure.
func writeDomainError(c *gin.Context, err error) {
	if ite, ok := apperrors.IsInsufficientTickets(err); ok {
		c.JSON(http.StatusConflict, gin.H{
			"error":             "Insufficient tickets",
			"available_tickets": ite.Available,
			"requested":         ite.Requested,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidTicketCount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrEventNotFound),
		errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrEventInactive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrReservationInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrAlreadyCancelled),
		errors.Is(err, apperrors.ErrBookingNotCancellable),
		errors.Is(err, apperrors.ErrEventHasBookings):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
