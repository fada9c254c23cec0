package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evently/internal/apperrors"
	"evently/internal/config"
	"evently/internal/models"
)

type bookingTestEnv struct {
	ledger   *memLedger
	store    *memKV
	users    *memUsers
	queue    *memQueue
	notifier *memNotifier
	bookings *BookingService
	avail    *AvailabilityService
}

func newBookingTestEnv(t *testing.T, cfg config.BookingConfig) *bookingTestEnv {
	t.Helper()

	ledger := newMemLedger()
	store := newMemKV()
	users := newMemUsers()
	queue := &memQueue{}
	notifier := &memNotifier{}

	avail := NewAvailabilityService(newMemEvents(ledger), ledger, store, cfg.AvailabilityTTL)
	bookings := NewBookingService(ledger, users, store, queue, notifier, avail, cfg)

	return &bookingTestEnv{
		ledger:   ledger,
		store:    store,
		users:    users,
		queue:    queue,
		notifier: notifier,
		bookings: bookings,
		avail:    avail,
	}
}

func defaultBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		RateLimitMax:       10,
		RateLimitWindow:    time.Minute,
		ReservationLockTTL: 5 * time.Minute,
		AvailabilityTTL:    30 * time.Second,
	}
}

func (env *bookingTestEnv) addEvent(t *testing.T, capacity int) int64 {
	t.Helper()
	event := &models.Event{
		ID:             1,
		Name:           "Test Concert",
		Venue:          "Main Hall",
		StartsAt:       time.Now().Add(24 * time.Hour),
		Capacity:       capacity,
		PricePerTicket: 2500,
		Active:         true,
	}
	env.ledger.addEvent(event)
	return event.ID
}

func (env *bookingTestEnv) addUser(t *testing.T) int64 {
	t.Helper()
	user := &models.User{
		Email:    fmt.Sprintf("user%d@example.com", env.users.nextID+1),
		FullName: "Test User",
	}
	require.NoError(t, env.users.Create(context.Background(), user))
	return user.UserID
}

func TestReserveCreatesProcessingBooking(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 100)
	userID := env.addUser(t)

	booking, err := env.bookings.Reserve(context.Background(), eventID, userID, 3)
	require.NoError(t, err)
	require.NotNil(t, booking)

	assert.Equal(t, models.BookingStatusProcessing, booking.Status)
	assert.Equal(t, 3, booking.TicketCount)
	assert.Equal(t, int64(7500), booking.TotalAmount)
	require.NotNil(t, booking.TaskID)
	assert.Equal(t, []int64{booking.ID}, env.queue.jobs())
}

func TestReserveRejectsInvalidTicketCount(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 100)
	userID := env.addUser(t)

	for _, count := range []int{0, -1} {
		booking, err := env.bookings.Reserve(context.Background(), eventID, userID, count)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTicketCount)
		assert.Nil(t, booking)
	}
	assert.Empty(t, env.queue.jobs())
}

func TestReserveUnknownEventAndUser(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 100)
	userID := env.addUser(t)

	_, err := env.bookings.Reserve(context.Background(), 999, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

	_, err = env.bookings.Reserve(context.Background(), eventID, 999, 1)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestReserveInactiveEvent(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	userID := env.addUser(t)
	env.ledger.addEvent(&models.Event{ID: 7, Capacity: 10, Active: false})

	_, err := env.bookings.Reserve(context.Background(), 7, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrEventInactive)
}

func TestReserveInsufficientConfirmedCapacity(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 5)

	// Fill the event: one confirmed booking takes all 5 seats.
	first := env.addUser(t)
	booking, err := env.bookings.Reserve(context.Background(), eventID, first, 5)
	require.NoError(t, err)
	_, _, err = env.ledger.FinalizeBooking(context.Background(), booking.ID)
	require.NoError(t, err)

	second := env.addUser(t)
	_, err = env.bookings.Reserve(context.Background(), eventID, second, 2)

	insufficient, ok := apperrors.IsInsufficientTickets(err)
	require.True(t, ok, "expected insufficient tickets, got %v", err)
	assert.Equal(t, 0, insufficient.Available)
	assert.Equal(t, 2, insufficient.Requested)

	// No booking row was created for the rejected request.
	rows, err := env.ledger.GetByUserID(context.Background(), second)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReserveDuplicateRequestLock(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 100)
	userID := env.addUser(t)

	// Another in-flight reservation for the same (event, user) pair holds
	// the lock.
	lockKey := reservationLockKey(eventID, userID)
	acquired, err := env.store.SetIfAbsent(context.Background(), lockKey, "1", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = env.bookings.Reserve(context.Background(), eventID, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrReservationInProgress)

	// Once released, the same pair reserves normally.
	require.NoError(t, env.store.Delete(context.Background(), lockKey))
	booking, err := env.bookings.Reserve(context.Background(), eventID, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusProcessing, booking.Status)

	// The lock is released after a completed attempt.
	_, held, err := env.store.Get(context.Background(), lockKey)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestReserveLockReleasedOnRejection(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 1)
	userID := env.addUser(t)

	_, err := env.bookings.Reserve(context.Background(), eventID, userID, 5)
	_, ok := apperrors.IsInsufficientTickets(err)
	require.True(t, ok)

	_, held, err := env.store.Get(context.Background(), reservationLockKey(eventID, userID))
	require.NoError(t, err)
	assert.False(t, held, "lock must be released after a rejected attempt")
}

// ctxCheckedKV fails operations once the caller's context is done, the way
// a real client would.
type ctxCheckedKV struct {
	*memKV
}

func (s *ctxCheckedKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.memKV.Delete(ctx, key)
}

// cancelAfterReserveLedger simulates the client disconnecting while the
// reserve transaction is in flight.
type cancelAfterReserveLedger struct {
	*memLedger
	cancel context.CancelFunc
}

func (l *cancelAfterReserveLedger) ReserveTickets(ctx context.Context, eventID, userID int64, ticketCount int) (*models.Booking, error) {
	booking, err := l.memLedger.ReserveTickets(ctx, eventID, userID, ticketCount)
	l.cancel()
	return booking, err
}

func TestReserveLockReleasedAfterClientDisconnect(t *testing.T) {
	cfg := defaultBookingConfig()
	base := newMemLedger()
	store := &ctxCheckedKV{memKV: newMemKV()}
	users := newMemUsers()
	queue := &memQueue{}
	notifier := &memNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ledger := &cancelAfterReserveLedger{memLedger: base, cancel: cancel}

	avail := NewAvailabilityService(newMemEvents(base), base, store, cfg.AvailabilityTTL)
	bookings := NewBookingService(ledger, users, store, queue, notifier, avail, cfg)

	base.addEvent(&models.Event{ID: 1, Capacity: 10, PricePerTicket: 100, Active: true})
	user := &models.User{Email: "gone@example.com"}
	require.NoError(t, users.Create(context.Background(), user))

	booking, err := bookings.Reserve(ctx, 1, user.UserID, 1)
	require.NoError(t, err)
	require.NotNil(t, booking)

	// The lock must not survive until its TTL just because the request
	// context died.
	_, held, err := store.memKV.Get(context.Background(), reservationLockKey(1, user.UserID))
	require.NoError(t, err)
	assert.False(t, held, "reservation lock must be released after the request context is cancelled")
}

func TestReserveRateLimit(t *testing.T) {
	cfg := defaultBookingConfig()
	env := newBookingTestEnv(t, cfg)
	eventID := env.addEvent(t, 1000)
	userID := env.addUser(t)
	otherID := env.addUser(t)

	for i := 0; i < cfg.RateLimitMax; i++ {
		_, err := env.bookings.Reserve(context.Background(), eventID, userID, 1)
		require.NoError(t, err, "attempt %d", i+1)
	}

	_, err := env.bookings.Reserve(context.Background(), eventID, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	// The window is per user; another user is unaffected.
	_, err = env.bookings.Reserve(context.Background(), eventID, otherID, 1)
	assert.NoError(t, err)
}

func TestReserveRateLimitCountsRejectedAttempts(t *testing.T) {
	cfg := defaultBookingConfig()
	cfg.RateLimitMax = 3
	env := newBookingTestEnv(t, cfg)
	eventID := env.addEvent(t, 2)
	userID := env.addUser(t)

	// Rejected attempts consume the window too.
	for i := 0; i < 3; i++ {
		_, err := env.bookings.Reserve(context.Background(), eventID, userID, 5)
		_, ok := apperrors.IsInsufficientTickets(err)
		assert.True(t, ok)
	}

	_, err := env.bookings.Reserve(context.Background(), eventID, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
}

func TestReserveRateLimitWindowResets(t *testing.T) {
	cfg := defaultBookingConfig()
	cfg.RateLimitMax = 2
	cfg.RateLimitWindow = 50 * time.Millisecond
	env := newBookingTestEnv(t, cfg)
	eventID := env.addEvent(t, 1000)
	userID := env.addUser(t)

	for i := 0; i < 2; i++ {
		_, err := env.bookings.Reserve(context.Background(), eventID, userID, 1)
		require.NoError(t, err)
	}
	_, err := env.bookings.Reserve(context.Background(), eventID, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	time.Sleep(80 * time.Millisecond)

	_, err = env.bookings.Reserve(context.Background(), eventID, userID, 1)
	assert.NoError(t, err)
}

func TestReserveEnqueueFailureReturnsBooking(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 100)
	userID := env.addUser(t)
	env.queue.failNext = errors.New("nats: connection lost")

	booking, err := env.bookings.Reserve(context.Background(), eventID, userID, 2)
	require.Error(t, err)
	require.NotNil(t, booking, "the committed booking must be surfaced despite the enqueue failure")
	assert.Equal(t, models.BookingStatusProcessing, booking.Status)
}

// Given capacity C and more concurrent single-ticket requests than C from
// distinct users, the confirmed ticket sum must never exceed C once every
// confirmation job has run.
func TestConcurrentReservationsNeverOversell(t *testing.T) {
	const capacity = 10
	const requests = 20

	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, capacity)

	userIDs := make([]int64, requests)
	for i := range userIDs {
		userIDs[i] = env.addUser(t)
	}

	var wg sync.WaitGroup
	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := env.bookings.Reserve(context.Background(), eventID, userID, 1)
			assert.NoError(t, err)
		}(userID)
	}
	wg.Wait()

	// Drain the confirmation queue the way the worker would.
	jobs := env.queue.jobs()
	require.Len(t, jobs, requests)
	for _, bookingID := range jobs {
		_, _, err := env.ledger.FinalizeBooking(context.Background(), bookingID)
		require.NoError(t, err)
	}

	counts := env.ledger.statusCounts(eventID)
	assert.Equal(t, capacity, counts[models.BookingStatusConfirmed])
	assert.Equal(t, requests-capacity, counts[models.BookingStatusFailed])
	assert.Zero(t, counts[models.BookingStatusProcessing])

	sum, err := env.ledger.ConfirmedTicketSum(context.Background(), eventID, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, sum, capacity)
}

func TestConcurrentMultiTicketReservationsNeverOversell(t *testing.T) {
	const capacity = 10

	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, capacity)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		userID := env.addUser(t)
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			// 3 tickets each; at most 3 of the 8 can be confirmed.
			_, err := env.bookings.Reserve(context.Background(), eventID, userID, 3)
			assert.NoError(t, err)
		}(userID)
	}
	wg.Wait()

	for _, bookingID := range env.queue.jobs() {
		_, _, err := env.ledger.FinalizeBooking(context.Background(), bookingID)
		require.NoError(t, err)
	}

	sum, err := env.ledger.ConfirmedTicketSum(context.Background(), eventID, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, sum, capacity)

	counts := env.ledger.statusCounts(eventID)
	assert.Equal(t, 3, counts[models.BookingStatusConfirmed])
}

func TestCancelConfirmedBookingRestoresAvailability(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 10)
	userID := env.addUser(t)

	booking, err := env.bookings.Reserve(context.Background(), eventID, userID, 4)
	require.NoError(t, err)
	_, _, err = env.ledger.FinalizeBooking(context.Background(), booking.ID)
	require.NoError(t, err)

	before, err := env.avail.Get(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, 6, before.Available)

	cancelled, err := env.bookings.Cancel(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	after, err := env.avail.Get(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, 10, after.Available)
	assert.False(t, after.Cached, "cancellation must invalidate the cache entry")

	notifications := env.notifier.all()
	require.Len(t, notifications, 1)
	assert.Equal(t, models.BookingStatusCancelled, notifications[0].Status)
	assert.Equal(t, booking.ID, notifications[0].BookingID)
}

func TestCancelProcessingBooking(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 10)
	userID := env.addUser(t)

	booking, err := env.bookings.Reserve(context.Background(), eventID, userID, 2)
	require.NoError(t, err)

	cancelled, err := env.bookings.Cancel(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	// A late confirmation job for the cancelled booking is a no-op.
	_, changed, err := env.ledger.FinalizeBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestCancelTerminalStates(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 10)
	userID := env.addUser(t)

	booking, err := env.bookings.Reserve(context.Background(), eventID, userID, 1)
	require.NoError(t, err)

	_, err = env.bookings.Cancel(context.Background(), booking.ID)
	require.NoError(t, err)

	_, err = env.bookings.Cancel(context.Background(), booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)

	_, err = env.bookings.Cancel(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)
}

func TestCancelFailedBookingNotAllowed(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 1)

	winner := env.addUser(t)
	loser := env.addUser(t)

	first, err := env.bookings.Reserve(context.Background(), eventID, winner, 1)
	require.NoError(t, err)
	second, err := env.bookings.Reserve(context.Background(), eventID, loser, 1)
	require.NoError(t, err)

	_, _, err = env.ledger.FinalizeBooking(context.Background(), first.ID)
	require.NoError(t, err)
	failed, _, err := env.ledger.FinalizeBooking(context.Background(), second.ID)
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusFailed, failed.Status)

	_, err = env.bookings.Cancel(context.Background(), second.ID)
	assert.ErrorIs(t, err, apperrors.ErrBookingNotCancellable)
}

func TestGetAndListBookings(t *testing.T) {
	env := newBookingTestEnv(t, defaultBookingConfig())
	eventID := env.addEvent(t, 100)
	userID := env.addUser(t)

	booking, err := env.bookings.Reserve(context.Background(), eventID, userID, 2)
	require.NoError(t, err)

	got, err := env.bookings.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = env.bookings.Get(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)

	list, err := env.bookings.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
