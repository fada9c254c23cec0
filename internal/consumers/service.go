package consumers

import (
	"context"
	"log/slog"

	"evently/internal/config"
	"evently/internal/database"
	"evently/internal/kv"
	"evently/internal/messaging"
	"evently/internal/models"
	"evently/internal/repository"
	"evently/internal/service"
)

// ConsumerService hosts the confirmation worker pool: a durable queue
// subscription feeding booking finalization.
type ConsumerService struct {
	cfg      *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	store    *kv.RedisStore
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	store, err := kv.NewRedisStore(cfg.Redis)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	availability := service.NewAvailabilityService(repos.Events, repos.Bookings, store, cfg.Booking.AvailabilityTTL)
	handlers := NewHandlers(repos.Bookings, availability, natsClient)

	return &ConsumerService{
		cfg:      cfg,
		db:       db,
		nats:     natsClient,
		store:    store,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting confirmation consumers...")

	_, err := cs.nats.SubscribeQueue(
		models.SubjectBookingConfirm, "confirmation-workers",
		cs.cfg.Booking.WorkerMaxInflight,
		cs.handlers.HandleConfirmBooking)
	if err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

// Bookings exposes the booking repository for the reconciliation job.
func (cs *ConsumerService) Bookings() *repository.BookingRepository {
	return cs.repos.Bookings
}

// Queue exposes the messaging client for the reconciliation job.
func (cs *ConsumerService) Queue() *messaging.NATSClient {
	return cs.nats
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.store != nil {
		if err := cs.store.Close(); err != nil {
			slog.Error("Error closing Redis connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
