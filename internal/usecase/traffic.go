package usecase

import (
	"context"
	"time"

	"github.com/user/rank-tracker/internal/repository"
	"github.com/user/rank-tracker/pkg/metrics"
	"go.uber.org/zap"
)

// TrafficSimulator advances the bounded per-slot engagement counters on a
// fixed tick and resets them once per calendar day. It runs independently of
// the rank pipeline and carries no other business logic.
type TrafficSimulator struct {
	repo   repository.TrafficRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewTrafficSimulator creates the traffic counter simulator.
func NewTrafficSimulator(repo repository.TrafficRepository, logger *zap.Logger) *TrafficSimulator {
	return &TrafficSimulator{repo: repo, logger: logger, now: time.Now}
}

// Tick increments every active slot's counter by one, capped at the slot's
// configured maximum, and stamps the update time. A failing slot is logged
// and skipped; the remaining slots in the tick still update. Returns the
// number of slots updated.
func (s *TrafficSimulator) Tick(ctx context.Context) (int, error) {
	slots, err := s.repo.FindBelowCap(ctx)
	if err != nil {
		return 0, err
	}
	if len(slots) == 0 {
		return 0, nil
	}

	now := s.now()
	updated := 0
	for _, slot := range slots {
		next := slot.Counter + 1
		if next > slot.MaxTraffic {
			next = slot.MaxTraffic
		}
		if err := s.repo.UpdateCounter(ctx, slot.ID, next, now); err != nil {
			s.logger.Error("traffic counter update failed",
				zap.Int64("slot_id", slot.ID),
				zap.Error(err),
			)
			continue
		}
		updated++
	}

	metrics.TrafficSlotsUpdated.Add(float64(updated))
	s.logger.Info("traffic counters advanced",
		zap.Int("eligible", len(slots)),
		zap.Int("updated", updated),
	)
	return updated, nil
}

// DailyReset zeroes every counter and stamps the reset date. Returns the
// number of slots reset.
func (s *TrafficSimulator) DailyReset(ctx context.Context) (int, error) {
	now := s.now()
	count, err := s.repo.ResetAll(ctx, now.Format("2006-01-02"), now)
	if err != nil {
		return 0, err
	}
	s.logger.Info("traffic counters reset", zap.Int("slots", count))
	return count, nil
}
