package handlers

import (
	"net/http"
	"strconv"

	"evently/internal/logger"
	"evently/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateBooking - POST /api/bookings
// Reserves tickets synchronously; confirmation happens asynchronously and
// the booking is returned in processing status.
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	booking, err := h.services.Bookings.Reserve(c.Request.Context(), req.EventID, uid, req.TicketCount)
	if err != nil {
		if booking != nil {
			// Reserved but the confirmation hand-off failed; the
			// reconciliation sweep re-enqueues the job.
			logger.WithContext(c.Request.Context()).Error("Reservation committed without confirmation job",
				"error", err, "booking_id", booking.ID)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":      "Booking accepted but confirmation is delayed",
				"booking_id": booking.ID,
				"status":     booking.Status,
			})
			return
		}
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateBookingResponse{
		ID:          booking.ID,
		EventID:     booking.EventID,
		TicketCount: booking.TicketCount,
		TotalAmount: booking.TotalAmount,
		Status:      booking.Status,
		TaskID:      booking.TaskID,
	})
}

// CancelBooking - PATCH /api/bookings/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.services.Bookings.Cancel(c.Request.Context(), req.BookingID)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CancelBookingResponse{
		BookingID: booking.ID,
		Status:    booking.Status,
	})
}

// ListBookings - GET /api/bookings
// Booking history of the authenticated user, newest first.
func (h *Handlers) ListBookings(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookings, err := h.services.Bookings.List(c.Request.Context(), uid)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response := make(models.ListBookingsResponse, len(bookings))
	for i, booking := range bookings {
		response[i] = models.ListBookingsResponseItem{
			ID:          booking.ID,
			EventID:     booking.EventID,
			TicketCount: booking.TicketCount,
			TotalAmount: booking.TotalAmount,
			Status:      booking.Status,
			CreatedAt:   booking.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := h.services.Bookings.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}
