package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evently/cmd/consumers/jobs"
	"evently/internal/config"
	"evently/internal/consumers"
	"evently/internal/logger"
)

func main() {
	log.Println("Starting confirmation worker service...")

	cfg := config.Load()
	cfg.NATS.ClientID = "evently-consumers"

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		log.Fatalf("Failed to create consumer service: %v", err)
	}

	if err := consumerService.Start(); err != nil {
		log.Fatalf("Failed to start consumers: %v", err)
	}

	// Reconciliation sweep for bookings stuck in processing.
	ctx, cancel := context.WithCancel(context.Background())
	stuckJob := jobs.NewStuckBookingJob(
		consumerService.Bookings(),
		consumerService.Queue(),
		cfg.Booking.StuckThreshold,
		cfg.Booking.SweepInterval,
	)
	stuckJob.Start(ctx)

	log.Println("Confirmation worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down confirmation worker service...")

	stuckJob.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Confirmation worker service stopped")
}
