package service

import (
	"context"

	"evently/internal/config"
	"evently/internal/kv"
	"evently/internal/models"
	"evently/internal/repository"
	"evently/internal/search"
)

// Ledger is the slice of the booking repository the services depend on.
// Implementations couple row locking and derived-sum computation inside
// single transactions; callers never split those across boundaries.
type Ledger interface {
	ReserveTickets(ctx context.Context, eventID, userID int64, ticketCount int) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
	ConfirmedTicketSum(ctx context.Context, eventID, excludeBookingID int64) (int, error)
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error)
	SetTaskID(ctx context.Context, id int64, taskID string) error
}

type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context, query string, page, pageSize int) ([]models.Event, error)
}

// AnalyticsStore computes booking aggregates straight from the ledger
// tables. Reads are eventually consistent with in-flight reservations.
type AnalyticsStore interface {
	Overview(ctx context.Context) (*models.AnalyticsOverview, error)
	EventStats(ctx context.Context, eventID int64) (*models.EventAnalytics, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ConfirmationQueue hands reserved bookings to the confirmation worker.
type ConfirmationQueue interface {
	EnqueueConfirmation(bookingID, eventID int64) (string, error)
}

// Notifier is the boundary to the notification dispatcher. Delivery
// mechanics are not this system's concern.
type Notifier interface {
	NotifyBooking(n models.BookingNotification) error
}

type Services struct {
	Events       *EventService
	Users        *UserService
	Bookings     *BookingService
	Availability *AvailabilityService
	Analytics    *AnalyticsService
}

func NewServices(repos *repository.Repositories, store kv.Store, queue ConfirmationQueue, notifier Notifier, es *search.ElasticsearchClient, cfg config.BookingConfig) *Services {
	availability := NewAvailabilityService(repos.Events, repos.Bookings, store, cfg.AvailabilityTTL)
	bookings := NewBookingService(repos.Bookings, repos.Users, store, queue, notifier, availability, cfg)
	events := NewEventService(repos.Events, repos.Bookings, availability, es)
	users := NewUserService(repos.Users)
	analytics := NewAnalyticsService(repos.Analytics)

	return &Services{
		Events:       events,
		Users:        users,
		Bookings:     bookings,
		Availability: availability,
		Analytics:    analytics,
	}
}
