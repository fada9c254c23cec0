package repository

import (
	"evently/internal/database"
)

type Repositories struct {
	Events    *EventRepository
	Bookings  *BookingRepository
	Users     *UserRepository
	Analytics *AnalyticsRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:    NewEventRepository(db),
		Bookings:  NewBookingRepository(db),
		Users:     NewUserRepository(db),
		Analytics: NewAnalyticsRepository(db),
	}
}
