package handlers

import (
	"errors"
	"net/http"

	"evently/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// CreateUser - POST /api/users
// Registration is the only unauthenticated write endpoint.
func (h *Handlers) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.services.Users.Register(c.Request.Context(), &req)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateUserResponse{
		UserID: user.UserID,
		Email:  user.Email,
	})
}
