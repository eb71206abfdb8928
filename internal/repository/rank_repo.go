package repository

import (
	"context"

	"github.com/user/rank-tracker/internal/entity"
)

// RankRepository defines the interface for storing rank observations and
// their append-only history.
type RankRepository interface {
	// FindObservation retrieves the latest observation for a (customer, slot)
	// pair, or nil when the pair has never been observed.
	FindObservation(ctx context.Context, customerID string, slotSequence int) (*entity.RankObservation, error)
	// SaveObservation stores or updates the observation. StartRank is only
	// written when no prior value exists.
	SaveObservation(ctx context.Context, obs *entity.RankObservation) error
	// AppendHistory adds one history row; rows are never updated or deleted.
	AppendHistory(ctx context.Context, entry *entity.RankHistoryEntry) error
	// HistoryFor returns all history rows for a (customer, slot) pair,
	// oldest first.
	HistoryFor(ctx context.Context, customerID string, slotSequence int) ([]*entity.RankHistoryEntry, error)
}
