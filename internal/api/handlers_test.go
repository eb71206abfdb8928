package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/internal/usecase"
	"github.com/user/rank-tracker/pkg/config"
	"github.com/user/rank-tracker/pkg/metrics"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

// In-memory stand-ins for the storage layer.

type memRankRepo struct {
	observations map[string]*entity.RankObservation
	history      []*entity.RankHistoryEntry
}

func newMemRankRepo() *memRankRepo {
	return &memRankRepo{observations: make(map[string]*entity.RankObservation)}
}

func (r *memRankRepo) key(customerID string, slotSequence int) string {
	return fmt.Sprintf("%s/%d", customerID, slotSequence)
}

func (r *memRankRepo) FindObservation(ctx context.Context, customerID string, slotSequence int) (*entity.RankObservation, error) {
	return r.observations[r.key(customerID, slotSequence)], nil
}

func (r *memRankRepo) SaveObservation(ctx context.Context, obs *entity.RankObservation) error {
	key := r.key(obs.CustomerID, obs.SlotSequence)
	stored := *obs
	if prior, ok := r.observations[key]; ok && prior.StartRank != nil {
		stored.StartRank = prior.StartRank
	}
	r.observations[key] = &stored
	return nil
}

func (r *memRankRepo) AppendHistory(ctx context.Context, entry *entity.RankHistoryEntry) error {
	r.history = append(r.history, entry)
	return nil
}

func (r *memRankRepo) HistoryFor(ctx context.Context, customerID string, slotSequence int) ([]*entity.RankHistoryEntry, error) {
	var out []*entity.RankHistoryEntry
	for _, e := range r.history {
		if e.CustomerID == customerID && e.SlotSequence == slotSequence {
			out = append(out, e)
		}
	}
	return out, nil
}

type memCooldownRepo struct {
	remaining time.Duration
	err       error
}

func (r *memCooldownRepo) Acquire(ctx context.Context, username string, window time.Duration) (bool, time.Duration, error) {
	if r.err != nil {
		return false, 0, r.err
	}
	if r.remaining > 0 {
		return false, r.remaining, nil
	}
	r.remaining = window
	return true, 0, nil
}

func (r *memCooldownRepo) Remaining(ctx context.Context, username string) (time.Duration, error) {
	return r.remaining, r.err
}

type memSlotRepo struct {
	slots []*entity.TrackedSlot
}

func (r *memSlotRepo) FindTracked(ctx context.Context, customerID string, platform entity.Platform, slotIDs []int64) ([]*entity.TrackedSlot, error) {
	var out []*entity.TrackedSlot
	for _, s := range r.slots {
		if s.CustomerID == customerID && s.Platform == platform {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSlotRepo) StampLastCheck(ctx context.Context, slotIDs []int64, checkedAt time.Time) error {
	return nil
}

type memTaskRepo struct {
	inserted []*entity.TrackingTask
}

func (r *memTaskRepo) FetchPending(ctx context.Context) ([]*entity.TrackingTask, error) {
	return nil, nil
}

func (r *memTaskRepo) Delete(ctx context.Context, id int64) error { return nil }

func (r *memTaskRepo) InsertBatch(ctx context.Context, tasks []*entity.TrackingTask) (int, error) {
	r.inserted = append(r.inserted, tasks...)
	return len(tasks), nil
}

type memTrafficRepo struct {
	slots []*entity.TrafficSlot
}

func (r *memTrafficRepo) FindBelowCap(ctx context.Context) ([]*entity.TrafficSlot, error) {
	var out []*entity.TrafficSlot
	for _, s := range r.slots {
		if s.Counter < s.MaxTraffic {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memTrafficRepo) UpdateCounter(ctx context.Context, slotID int64, counter int, updatedAt time.Time) error {
	for _, s := range r.slots {
		if s.ID == slotID {
			s.Counter = counter
		}
	}
	return nil
}

func (r *memTrafficRepo) ResetAll(ctx context.Context, resetDate string, updatedAt time.Time) (int, error) {
	for _, s := range r.slots {
		s.Counter = 0
	}
	return len(r.slots), nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var pingOK = pingFunc(func(context.Context) error { return nil })

type serverFixture struct {
	server   *Server
	cooldown *memCooldownRepo
	slots    *memSlotRepo
	tasks    *memTaskRepo
	traffic  *memTrafficRepo
	rank     *memRankRepo
}

func newServerFixture(t *testing.T, pg, rd Pinger) *serverFixture {
	t.Helper()
	log := zap.NewNop()
	f := &serverFixture{
		cooldown: &memCooldownRepo{},
		slots:    &memSlotRepo{},
		tasks:    &memTaskRepo{},
		traffic:  &memTrafficRepo{},
		rank:     newMemRankRepo(),
	}

	gate := usecase.NewGate(f.cooldown, time.Hour, log)
	f.server = NewServer(
		&config.Config{ServerPort: "0"},
		usecase.NewRecorder(f.rank, log),
		gate,
		usecase.NewManualTrigger(gate, f.slots, f.tasks, log),
		usecase.NewTrafficSimulator(f.traffic, log),
		pg,
		rd,
		log,
	)
	return f
}

func do(t *testing.T, s *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)
	rec := do(t, f.server, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["postgres"])
	assert.Equal(t, "healthy", body["redis"])
}

func TestHealthCheckDegraded(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("unreachable") })
	f := newServerFixture(t, pingOK, down)
	rec := do(t, f.server, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "unhealthy", body["redis"])
}

func TestRecordRank(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)

	rec := do(t, f.server, http.MethodPost, "/api/rank", map[string]interface{}{
		"customerId":   "cust-1",
		"slotSequence": 1,
		"keyword":      "이동식 트롤리",
		"linkUrl":      "https://www.coupang.com/vp/products/8473798698",
		"platform":     "coupang",
		"currentRank":  20,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(20), body["currentRank"])
	assert.Equal(t, float64(20), body["startRank"])
	assert.Equal(t, float64(0), body["rankChange"])

	// An improved rank reports positive deltas against both baselines.
	rec = do(t, f.server, http.MethodPost, "/api/rank", map[string]interface{}{
		"customerId":   "cust-1",
		"slotSequence": 1,
		"platform":     "coupang",
		"currentRank":  12,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(12), body["currentRank"])
	assert.Equal(t, float64(20), body["startRank"])
	assert.Equal(t, float64(8), body["rankChange"])
	assert.Equal(t, float64(8), body["startRankDiff"])
}

func TestRecordRankValidation(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)

	rec := do(t, f.server, http.MethodPost, "/api/rank", map[string]interface{}{"slotSequence": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, f.server, http.MethodPost, "/api/rank", map[string]interface{}{
		"customerId": "cust-1", "slotSequence": 1, "currentRank": -3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankHistory(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)
	f.rank.history = []*entity.RankHistoryEntry{
		{CustomerID: "cust-1", SlotSequence: 1, Rank: intp(20)},
		{CustomerID: "cust-1", SlotSequence: 1, Rank: intp(15), RankChange: 5, StartRankDiff: 5},
		{CustomerID: "cust-1", SlotSequence: 2, Rank: intp(9)},
	}

	rec := do(t, f.server, http.MethodGet, "/api/rank-history?customerId=cust-1&slotSequence=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	history, ok := body["history"].([]interface{})
	require.True(t, ok)
	assert.Len(t, history, 2)
}

func TestRankHistoryValidation(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)

	rec := do(t, f.server, http.MethodGet, "/api/rank-history", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, f.server, http.MethodGet, "/api/rank-history?customerId=c&slotSequence=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCooldownStatus(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)

	rec := do(t, f.server, http.MethodGet, "/api/rank-update/cooldown?username=operator", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(0), body["cooldownRemaining"])

	f.cooldown.remaining = 30 * time.Minute
	rec = do(t, f.server, http.MethodGet, "/api/rank-update/cooldown?username=operator", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(1800), body["cooldownRemaining"])
}

func TestRankUpdateAccepted(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)
	f.slots.slots = []*entity.TrackedSlot{
		{ID: 1, CustomerID: "operator", SlotSequence: 1, Keyword: "트롤리", LinkURL: "https://www.coupang.com/vp/products/111", Platform: entity.PlatformCoupang},
	}

	rec := do(t, f.server, http.MethodPost, "/api/rank-update", map[string]interface{}{
		"username": "operator",
		"platform": "coupang",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, float64(1), body["count"])
	assert.Len(t, f.tasks.inserted, 1)
}

func TestRankUpdateRejectedByCooldown(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)
	f.cooldown.remaining = 20 * time.Minute

	rec := do(t, f.server, http.MethodPost, "/api/rank-update", map[string]interface{}{
		"username": "operator",
		"platform": "coupang",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, float64(1200), body["cooldownRemaining"])
	assert.Empty(t, f.tasks.inserted)
}

func TestRankUpdateNoTrackedSlots(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)

	rec := do(t, f.server, http.MethodPost, "/api/rank-update", map[string]interface{}{
		"username": "operator",
		"platform": "coupang",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRankUpdateValidation(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)

	rec := do(t, f.server, http.MethodPost, "/api/rank-update", map[string]interface{}{"username": "operator"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrafficScheduler(t *testing.T) {
	f := newServerFixture(t, pingOK, pingOK)
	f.traffic.slots = []*entity.TrafficSlot{
		{ID: 1, Counter: 10, MaxTraffic: 120},
		{ID: 2, Counter: 120, MaxTraffic: 120},
	}

	rec := do(t, f.server, http.MethodPost, "/api/traffic/scheduler", map[string]string{"action": "increment"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["updated"])
	assert.Equal(t, 11, f.traffic.slots[0].Counter)

	rec = do(t, f.server, http.MethodPost, "/api/traffic/scheduler", map[string]string{"action": "daily_reset"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.traffic.slots[1].Counter)

	rec = do(t, f.server, http.MethodPost, "/api/traffic/scheduler", map[string]string{"action": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func intp(v int) *int { return &v }
