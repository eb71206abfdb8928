package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/internal/repository"
	"go.uber.org/zap"
)

// ErrNoTrackedSlots means the operator has no slots with a registered
// keyword for the requested platform.
var ErrNoTrackedSlots = errors.New("no tracked slots registered")

// TriggerResult reports what a manual refresh request did.
type TriggerResult struct {
	Accepted  bool
	Count     int
	Remaining time.Duration
}

// ManualTrigger copies an operator's tracked slots into the task store so
// the orchestrator picks them up on its next poll. Every request passes the
// cooldown gate first.
type ManualTrigger struct {
	gate     *Gate
	slotRepo repository.SlotRepository
	taskRepo repository.TaskRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewManualTrigger creates the manual refresh entrypoint.
func NewManualTrigger(gate *Gate, slotRepo repository.SlotRepository, taskRepo repository.TaskRepository, logger *zap.Logger) *ManualTrigger {
	return &ManualTrigger{
		gate:     gate,
		slotRepo: slotRepo,
		taskRepo: taskRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Trigger runs the gate and, when accepted, enqueues one tracking task per
// selected slot and stamps the slots' last-check time. An empty slotIDs
// selects all of the operator's tracked slots on the platform.
func (t *ManualTrigger) Trigger(ctx context.Context, username string, platform entity.Platform, slotIDs []int64) (*TriggerResult, error) {
	decision, err := t.gate.Trigger(ctx, username)
	if err != nil {
		return nil, err
	}
	if !decision.Accepted {
		return &TriggerResult{Accepted: false, Remaining: decision.Remaining}, nil
	}

	slots, err := t.slotRepo.FindTracked(ctx, username, platform, slotIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked slots: %w", err)
	}
	if len(slots) == 0 {
		return nil, ErrNoTrackedSlots
	}

	now := t.now()
	tasks := make([]*entity.TrackingTask, 0, len(slots))
	ids := make([]int64, 0, len(slots))
	for _, slot := range slots {
		tasks = append(tasks, &entity.TrackingTask{
			Keyword:      slot.Keyword,
			LinkURL:      slot.LinkURL,
			Platform:     slot.Platform,
			CustomerID:   slot.CustomerID,
			SlotSequence: slot.SlotSequence,
			CreatedAt:    now,
		})
		ids = append(ids, slot.ID)
	}

	count, err := t.taskRepo.InsertBatch(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue tracking tasks: %w", err)
	}

	// The stamp is informational; the enqueue already succeeded, so a
	// failure here is logged rather than surfaced.
	if err := t.slotRepo.StampLastCheck(ctx, ids, now); err != nil {
		t.logger.Warn("failed to stamp last check date", zap.Error(err))
	}

	t.logger.Info("manual refresh accepted",
		zap.String("username", username),
		zap.String("platform", string(platform)),
		zap.Int("count", count),
	)
	return &TriggerResult{Accepted: true, Count: count}, nil
}
