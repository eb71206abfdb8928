package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/rank-tracker/internal/entity"
	"go.uber.org/zap"
)

type fakeCooldownRepo struct {
	accepted   bool
	remaining  time.Duration
	acquireErr error
}

func (r *fakeCooldownRepo) Acquire(ctx context.Context, username string, window time.Duration) (bool, time.Duration, error) {
	if r.acquireErr != nil {
		return false, 0, r.acquireErr
	}
	return r.accepted, r.remaining, nil
}

func (r *fakeCooldownRepo) Remaining(ctx context.Context, username string) (time.Duration, error) {
	return r.remaining, nil
}

type fakeSlotRepo struct {
	slots    []*entity.TrackedSlot
	findErr  error
	stamped  []int64
	stampErr error
}

func (r *fakeSlotRepo) FindTracked(ctx context.Context, customerID string, platform entity.Platform, slotIDs []int64) ([]*entity.TrackedSlot, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*entity.TrackedSlot
	for _, s := range r.slots {
		if s.CustomerID != customerID || s.Platform != platform {
			continue
		}
		if len(slotIDs) > 0 {
			match := false
			for _, id := range slotIDs {
				if s.ID == id {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSlotRepo) StampLastCheck(ctx context.Context, slotIDs []int64, checkedAt time.Time) error {
	if r.stampErr != nil {
		return r.stampErr
	}
	r.stamped = append(r.stamped, slotIDs...)
	return nil
}

func trackedSlots() []*entity.TrackedSlot {
	return []*entity.TrackedSlot{
		{ID: 11, CustomerID: "cust-1", SlotSequence: 1, Keyword: "트롤리", LinkURL: "https://www.coupang.com/vp/products/111", Platform: entity.PlatformCoupang},
		{ID: 12, CustomerID: "cust-1", SlotSequence: 2, Keyword: "선반", LinkURL: "https://www.coupang.com/vp/products/222", Platform: entity.PlatformCoupang},
		{ID: 13, CustomerID: "cust-1", SlotSequence: 3, Keyword: "노트북", LinkURL: "https://smartstore.naver.com/x/products/333", Platform: entity.PlatformNaverShopping},
	}
}

func newTestTrigger(cooldown *fakeCooldownRepo, slots *fakeSlotRepo, tasks *fakeTaskRepo) *ManualTrigger {
	gate := NewGate(cooldown, time.Hour, zap.NewNop())
	return NewManualTrigger(gate, slots, tasks, zap.NewNop())
}

func TestTriggerEnqueuesTrackedSlots(t *testing.T) {
	slots := &fakeSlotRepo{slots: trackedSlots()}
	tasks := &fakeTaskRepo{}
	trigger := newTestTrigger(&fakeCooldownRepo{accepted: true}, slots, tasks)

	result, err := trigger.Trigger(context.Background(), "cust-1", entity.PlatformCoupang, nil)
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Equal(t, 2, result.Count)
	require.Len(t, tasks.inserted, 2)
	assert.Equal(t, "트롤리", tasks.inserted[0].Keyword)
	assert.Equal(t, entity.PlatformCoupang, tasks.inserted[0].Platform)
	assert.Equal(t, []int64{11, 12}, slots.stamped)
}

func TestTriggerHonoursSlotSelection(t *testing.T) {
	slots := &fakeSlotRepo{slots: trackedSlots()}
	tasks := &fakeTaskRepo{}
	trigger := newTestTrigger(&fakeCooldownRepo{accepted: true}, slots, tasks)

	result, err := trigger.Trigger(context.Background(), "cust-1", entity.PlatformCoupang, []int64{12})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Count)
	require.Len(t, tasks.inserted, 1)
	assert.Equal(t, 2, tasks.inserted[0].SlotSequence)
}

func TestTriggerRejectedByCooldown(t *testing.T) {
	slots := &fakeSlotRepo{slots: trackedSlots()}
	tasks := &fakeTaskRepo{}
	trigger := newTestTrigger(&fakeCooldownRepo{accepted: false, remaining: 25 * time.Minute}, slots, tasks)

	result, err := trigger.Trigger(context.Background(), "cust-1", entity.PlatformCoupang, nil)
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	assert.Equal(t, 25*time.Minute, result.Remaining)
	assert.Empty(t, tasks.inserted, "a rejected trigger enqueues nothing")
}

func TestTriggerNoTrackedSlots(t *testing.T) {
	slots := &fakeSlotRepo{}
	tasks := &fakeTaskRepo{}
	trigger := newTestTrigger(&fakeCooldownRepo{accepted: true}, slots, tasks)

	_, err := trigger.Trigger(context.Background(), "cust-1", entity.PlatformPlace, nil)
	assert.ErrorIs(t, err, ErrNoTrackedSlots)
}

func TestTriggerStampFailureIsNotFatal(t *testing.T) {
	slots := &fakeSlotRepo{slots: trackedSlots(), stampErr: errors.New("stamp failed")}
	tasks := &fakeTaskRepo{}
	trigger := newTestTrigger(&fakeCooldownRepo{accepted: true}, slots, tasks)

	result, err := trigger.Trigger(context.Background(), "cust-1", entity.PlatformCoupang, nil)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 2, result.Count)
}

func TestTriggerEnqueueFailure(t *testing.T) {
	slots := &fakeSlotRepo{slots: trackedSlots()}
	tasks := &fakeTaskRepo{insertErr: errors.New("insert failed")}
	trigger := newTestTrigger(&fakeCooldownRepo{accepted: true}, slots, tasks)

	_, err := trigger.Trigger(context.Background(), "cust-1", entity.PlatformCoupang, nil)
	assert.Error(t, err)
}
