package service

import "fmt"

// Key shapes in the shared KV store. Any component may invalidate the
// availability entry; the lock and rate keys are owned by the coordinator.

func reservationLockKey(eventID, userID int64) string {
	return fmt.Sprintf("booking_lock:%d:%d", eventID, userID)
}

func rateLimitKey(userID int64) string {
	return fmt.Sprintf("booking_rate_limit:%d", userID)
}

func availabilityKey(eventID int64) string {
	return fmt.Sprintf("event_availability:%d", eventID)
}
