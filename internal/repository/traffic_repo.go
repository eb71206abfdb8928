package repository

import (
	"context"
	"time"

	"github.com/user/rank-tracker/internal/entity"
)

// TrafficRepository defines the interface for the per-slot engagement
// counters advanced by the traffic simulator.
type TrafficRepository interface {
	// FindBelowCap returns all active slots whose counter has not reached its
	// configured maximum.
	FindBelowCap(ctx context.Context) ([]*entity.TrafficSlot, error)
	// UpdateCounter sets a slot's counter value and update timestamp.
	UpdateCounter(ctx context.Context, slotID int64, counter int, updatedAt time.Time) error
	// ResetAll zeroes every counter and stamps the reset date. It returns the
	// number of slots reset.
	ResetAll(ctx context.Context, resetDate string, updatedAt time.Time) (int, error)
}

// SlotRepository defines the interface for reading a customer's registered
// tracking slots, the source rows of a manual refresh.
type SlotRepository interface {
	// FindTracked returns the customer's slots carrying a non-empty keyword
	// for one platform, ordered by slot sequence. An empty slotIDs filter
	// selects all of them.
	FindTracked(ctx context.Context, customerID string, platform entity.Platform, slotIDs []int64) ([]*entity.TrackedSlot, error)
	// StampLastCheck records the time a refresh was requested for the slots.
	StampLastCheck(ctx context.Context, slotIDs []int64, checkedAt time.Time) error
}
