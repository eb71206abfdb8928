package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/rank-tracker/internal/entity"
	"go.uber.org/zap"
)

func intp(v int) *int { return &v }

type fakeRankRepo struct {
	observations map[string]*entity.RankObservation
	history      []*entity.RankHistoryEntry

	findErr   error
	saveErr   error
	appendErr error
}

func newFakeRankRepo() *fakeRankRepo {
	return &fakeRankRepo{observations: make(map[string]*entity.RankObservation)}
}

func (r *fakeRankRepo) key(customerID string, slotSequence int) string {
	return fmt.Sprintf("%s/%d", customerID, slotSequence)
}

func (r *fakeRankRepo) FindObservation(ctx context.Context, customerID string, slotSequence int) (*entity.RankObservation, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.observations[r.key(customerID, slotSequence)], nil
}

func (r *fakeRankRepo) SaveObservation(ctx context.Context, obs *entity.RankObservation) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	key := r.key(obs.CustomerID, obs.SlotSequence)
	stored := *obs
	// Same rule as the SQL upsert: the first non-null start rank sticks.
	if prior, ok := r.observations[key]; ok && prior.StartRank != nil {
		stored.StartRank = prior.StartRank
	}
	r.observations[key] = &stored
	return nil
}

func (r *fakeRankRepo) AppendHistory(ctx context.Context, entry *entity.RankHistoryEntry) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.history = append(r.history, entry)
	return nil
}

func (r *fakeRankRepo) HistoryFor(ctx context.Context, customerID string, slotSequence int) ([]*entity.RankHistoryEntry, error) {
	var out []*entity.RankHistoryEntry
	for _, e := range r.history {
		if e.CustomerID == customerID && e.SlotSequence == slotSequence {
			out = append(out, e)
		}
	}
	return out, nil
}

func observationAt(rank *int, at time.Time) Observation {
	return Observation{
		CustomerID:   "cust-1",
		SlotSequence: 1,
		Keyword:      "이동식 트롤리",
		LinkURL:      "https://www.coupang.com/vp/products/8473798698",
		Platform:     entity.PlatformCoupang,
		Rank:         rank,
		ObservedAt:   at,
	}
}

func TestRecordObservationDeltaSeries(t *testing.T) {
	repo := newFakeRankRepo()
	rec := NewRecorder(repo, zap.NewNop())
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	ranks := []int{20, 15, 15, 8}
	wantChange := []int{0, 5, 0, 7}
	wantDiff := []int{0, 5, 5, 12}

	for i, rank := range ranks {
		obs, entry, err := rec.RecordObservation(ctx, observationAt(intp(rank), base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)

		assert.Equal(t, wantChange[i], entry.RankChange, "step %d", i)
		assert.Equal(t, wantDiff[i], entry.StartRankDiff, "step %d", i)
		require.NotNil(t, obs.StartRank)
		assert.Equal(t, 20, *obs.StartRank, "start rank never moves")
	}

	history, err := rec.History(ctx, "cust-1", 1)
	require.NoError(t, err)
	assert.Len(t, history, 4)
	require.NotNil(t, history[3].Rank)
	assert.Equal(t, 8, *history[3].Rank)
}

func TestRecordObservationNullRank(t *testing.T) {
	repo := newFakeRankRepo()
	rec := NewRecorder(repo, zap.NewNop())
	ctx := context.Background()

	// Target not located: the observation is recorded with a null rank and
	// no start rank is established.
	obs, entry, err := rec.RecordObservation(ctx, observationAt(nil, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, obs.CurrentRank)
	assert.Nil(t, obs.StartRank)
	assert.Equal(t, 0, entry.RankChange)
	assert.Equal(t, 0, entry.StartRankDiff)

	// The first real rank afterwards becomes the start rank with zero deltas.
	obs, entry, err = rec.RecordObservation(ctx, observationAt(intp(10), time.Now()))
	require.NoError(t, err)
	require.NotNil(t, obs.StartRank)
	assert.Equal(t, 10, *obs.StartRank)
	assert.Equal(t, 0, entry.RankChange)
	assert.Equal(t, 0, entry.StartRankDiff)
}

func TestRecordObservationRankLost(t *testing.T) {
	repo := newFakeRankRepo()
	rec := NewRecorder(repo, zap.NewNop())
	ctx := context.Background()

	_, _, err := rec.RecordObservation(ctx, observationAt(intp(5), time.Now()))
	require.NoError(t, err)

	// Dropping out of the listing keeps the start rank and yields zero
	// deltas rather than fabricated ones.
	obs, entry, err := rec.RecordObservation(ctx, observationAt(nil, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, obs.CurrentRank)
	require.NotNil(t, obs.StartRank)
	assert.Equal(t, 5, *obs.StartRank)
	assert.Equal(t, 0, entry.RankChange)
	assert.Equal(t, 0, entry.StartRankDiff)
}

func TestRecordObservationStoreFailures(t *testing.T) {
	boom := errors.New("db down")

	repo := newFakeRankRepo()
	repo.findErr = boom
	rec := NewRecorder(repo, zap.NewNop())
	_, _, err := rec.RecordObservation(context.Background(), observationAt(intp(1), time.Now()))
	assert.ErrorIs(t, err, boom)

	repo = newFakeRankRepo()
	repo.appendErr = boom
	rec = NewRecorder(repo, zap.NewNop())
	_, _, err = rec.RecordObservation(context.Background(), observationAt(intp(1), time.Now()))
	assert.ErrorIs(t, err, boom)
}
