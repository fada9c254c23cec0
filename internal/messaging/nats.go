package messaging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"evently/internal/models"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
)

type NATSClient struct {
	conn stan.Conn
}

type Config struct {
	URL       string
	ClusterID string
	ClientID  string
}

func NewNATSClient(cfg Config) (*NATSClient, error) {
	// Unique client ID to avoid conflicts between instances
	uniqueClientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])

	conn, err := stan.Connect(cfg.ClusterID, uniqueClientID, stan.NatsURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}

	slog.Info("Connected to NATS Streaming",
		"url", cfg.URL, "cluster", cfg.ClusterID, "client", uniqueClientID)

	return &NATSClient{conn: conn}, nil
}

func (nc *NATSClient) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := nc.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	return nil
}

// EnqueueConfirmation hands a booking off to the confirmation worker and
// returns the job reference stored on the booking.
func (nc *NATSClient) EnqueueConfirmation(bookingID, eventID int64) (string, error) {
	msg := models.ConfirmBookingMessage{
		JobID:     uuid.New().String(),
		BookingID: bookingID,
		EventID:   eventID,
		Timestamp: time.Now(),
	}

	if err := nc.Publish(models.SubjectBookingConfirm, msg); err != nil {
		return "", err
	}
	return msg.JobID, nil
}

// NotifyBooking emits a terminal booking status to the notification
// dispatcher subject.
func (nc *NATSClient) NotifyBooking(n models.BookingNotification) error {
	return nc.Publish(models.SubjectBookingNotification, n)
}

// SubscribeQueue subscribes with a durable queue group in manual-ack mode.
// The broker redelivers anything not acked within AckWait, so handlers must
// be idempotent.
func (nc *NATSClient) SubscribeQueue(subject, queue string, maxInflight int, handler stan.MsgHandler) (stan.Subscription, error) {
	sub, err := nc.conn.QueueSubscribe(subject, queue, handler,
		stan.DurableName(subject+"-"+queue+"-durable"),
		stan.AckWait(30*time.Second),
		stan.MaxInflight(maxInflight),
		stan.SetManualAckMode())
	if err != nil {
		return nil, fmt.Errorf("failed to queue subscribe to subject %s: %w", subject, err)
	}

	slog.Info("Subscribed to subject", "subject", subject, "queue", queue)
	return sub, nil
}

func (nc *NATSClient) Close() error {
	if nc.conn != nil {
		return nc.conn.Close()
	}
	return nil
}
