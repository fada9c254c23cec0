package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"evently/internal/apperrors"
	"evently/internal/models"
)

// In-memory implementations of the injected dependencies. The ledger fake
// serializes its transactions with a mutex the same way the real one
// serializes per-event work with row locks.

type memLedger struct {
	mu       sync.Mutex
	nextID   int64
	events   map[int64]*models.Event
	bookings map[int64]*models.Booking
}

func newMemLedger() *memLedger {
	return &memLedger{
		events:   make(map[int64]*models.Event),
		bookings: make(map[int64]*models.Booking),
	}
}

func (l *memLedger) addEvent(event *models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[event.ID] = event
}

func (l *memLedger) confirmedSumLocked(eventID, excludeBookingID int64) int {
	sum := 0
	for _, b := range l.bookings {
		if b.EventID == eventID && b.Status == models.BookingStatusConfirmed && b.ID != excludeBookingID {
			sum += b.TicketCount
		}
	}
	return sum
}

func (l *memLedger) ReserveTickets(ctx context.Context, eventID, userID int64, ticketCount int) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	event, ok := l.events[eventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	if !event.Active {
		return nil, apperrors.ErrEventInactive
	}

	available := event.Capacity - l.confirmedSumLocked(eventID, 0)
	if available < ticketCount {
		return nil, &apperrors.InsufficientTicketsError{Available: available, Requested: ticketCount}
	}

	l.nextID++
	booking := &models.Booking{
		ID:          l.nextID,
		EventID:     eventID,
		UserID:      userID,
		TicketCount: ticketCount,
		TotalAmount: event.PricePerTicket * int64(ticketCount),
		Status:      models.BookingStatusProcessing,
		CreatedAt:   time.Now(),
	}
	l.bookings[booking.ID] = booking

	copied := *booking
	return &copied, nil
}

func (l *memLedger) FinalizeBooking(ctx context.Context, bookingID int64) (*models.Booking, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	booking, ok := l.bookings[bookingID]
	if !ok {
		return nil, false, apperrors.ErrBookingNotFound
	}
	if booking.Terminal() {
		copied := *booking
		return &copied, false, nil
	}

	event := l.events[booking.EventID]
	available := event.Capacity - l.confirmedSumLocked(booking.EventID, booking.ID)

	if available >= booking.TicketCount {
		booking.Status = models.BookingStatusConfirmed
	} else {
		booking.Status = models.BookingStatusFailed
	}

	copied := *booking
	return &copied, true, nil
}

func (l *memLedger) CancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	booking, ok := l.bookings[bookingID]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	switch booking.Status {
	case models.BookingStatusCancelled:
		return nil, apperrors.ErrAlreadyCancelled
	case models.BookingStatusFailed:
		return nil, apperrors.ErrBookingNotCancellable
	}

	booking.Status = models.BookingStatusCancelled
	copied := *booking
	return &copied, nil
}

func (l *memLedger) ConfirmedTicketSum(ctx context.Context, eventID, excludeBookingID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.confirmedSumLocked(eventID, excludeBookingID), nil
}

func (l *memLedger) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	booking, ok := l.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (l *memLedger) GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var result []models.Booking
	for _, b := range l.bookings {
		if b.UserID == userID {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (l *memLedger) SetTaskID(ctx context.Context, id int64, taskID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if booking, ok := l.bookings[id]; ok {
		booking.TaskID = &taskID
	}
	return nil
}

func (l *memLedger) statusCounts(eventID int64) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[string]int)
	for _, b := range l.bookings {
		if b.EventID == eventID {
			counts[b.Status]++
		}
	}
	return counts
}

type kvEntry struct {
	value     string
	expiresAt time.Time
}

type memKV struct {
	mu      sync.Mutex
	entries map[string]kvEntry
}

func newMemKV() *memKV {
	return &memKV{entries: make(map[string]kvEntry)}
}

func (s *memKV) liveLocked(key string) (kvEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return kvEntry{}, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return kvEntry{}, false
	}
	return entry, true
}

func (s *memKV) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liveLocked(key); ok {
		return false, nil
	}
	s.entries[key] = kvEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *memKV) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(key)
	return entry.value, ok, nil
}

func (s *memKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = kvEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memKV) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(key)
	count := int64(0)
	expiresAt := time.Now().Add(ttl)
	if ok {
		count, _ = strconv.ParseInt(entry.value, 10, 64)
		expiresAt = entry.expiresAt
	}
	count++
	s.entries[key] = kvEntry{value: strconv.FormatInt(count, 10), expiresAt: expiresAt}
	return count, nil
}

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[int64]*models.User)}
}

func (s *memUsers) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.UserID = s.nextID
	user.IsActive = true
	user.RegisteredAt = time.Now()
	copied := *user
	s.users[user.UserID] = &copied
	return nil
}

func (s *memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

type memEvents struct {
	ledger *memLedger
	nextID int64
	mu     sync.Mutex
}

func newMemEvents(ledger *memLedger) *memEvents {
	return &memEvents{ledger: ledger}
}

func (s *memEvents) Create(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	s.nextID++
	event.ID = s.nextID
	s.mu.Unlock()
	s.ledger.addEvent(event)
	return nil
}

func (s *memEvents) Update(ctx context.Context, event *models.Event) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if _, ok := s.ledger.events[event.ID]; !ok {
		return apperrors.ErrEventNotFound
	}
	copied := *event
	s.ledger.events[event.ID] = &copied
	return nil
}

func (s *memEvents) Delete(ctx context.Context, id int64) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if _, ok := s.ledger.events[id]; !ok {
		return apperrors.ErrEventNotFound
	}
	delete(s.ledger.events, id)
	return nil
}

func (s *memEvents) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	event, ok := s.ledger.events[id]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

func (s *memEvents) List(ctx context.Context, query string, page, pageSize int) ([]models.Event, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	var events []models.Event
	for _, event := range s.ledger.events {
		events = append(events, *event)
	}
	return events, nil
}

type memQueue struct {
	mu       sync.Mutex
	enqueued []int64
	failNext error
}

func (q *memQueue) EnqueueConfirmation(bookingID, eventID int64) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failNext != nil {
		err := q.failNext
		q.failNext = nil
		return "", err
	}
	q.enqueued = append(q.enqueued, bookingID)
	return fmt.Sprintf("job-%d", bookingID), nil
}

func (q *memQueue) jobs() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int64(nil), q.enqueued...)
}

type memNotifier struct {
	mu            sync.Mutex
	notifications []models.BookingNotification
}

func (n *memNotifier) NotifyBooking(notification models.BookingNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *memNotifier) all() []models.BookingNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.BookingNotification(nil), n.notifications...)
}
