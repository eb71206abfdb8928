package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/internal/repository"
	"go.uber.org/zap"
)

// Recorder persists resolved ranks and their deltas.
type Recorder interface {
	// RecordObservation returns the updated observation and the history row
	// it appended.
	RecordObservation(ctx context.Context, obs Observation) (*entity.RankObservation, *entity.RankHistoryEntry, error)
	History(ctx context.Context, customerID string, slotSequence int) ([]*entity.RankHistoryEntry, error)
}

// Observation is one resolved rank for a (customer, slot) pair. Rank is nil
// when the target was not located within bounds.
type Observation struct {
	CustomerID   string
	SlotSequence int
	Keyword      string
	LinkURL      string
	Platform     entity.Platform
	Rank         *int
	ObservedAt   time.Time
}

type recorder struct {
	rankRepo repository.RankRepository
	logger   *zap.Logger
}

// NewRecorder creates the rank history recorder.
func NewRecorder(rankRepo repository.RankRepository, logger *zap.Logger) Recorder {
	return &recorder{rankRepo: rankRepo, logger: logger}
}

// RecordObservation updates the (customer, slot) observation and appends one
// history row. The first successful resolution establishes the start rank;
// later calls compute rank change against the previous observation and the
// cumulative diff against the start rank. Positive values mean the rank
// number went down, i.e. the product moved up the listing. Re-applying an
// identical rank yields a zero change but still appends a row: retried
// deliveries of the same logical observation must not corrupt the series,
// and distinct runs are deliberately not deduplicated.
func (r *recorder) RecordObservation(ctx context.Context, obs Observation) (*entity.RankObservation, *entity.RankHistoryEntry, error) {
	prior, err := r.rankRepo.FindObservation(ctx, obs.CustomerID, obs.SlotSequence)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read prior observation: %w", err)
	}

	when := obs.ObservedAt
	if when.IsZero() {
		when = time.Now()
	}

	rankChange := 0
	startRankDiff := 0
	startRank := obs.Rank

	if prior != nil {
		// Start rank is immutable once set; the store enforces it too.
		startRank = prior.StartRank
		if startRank == nil {
			startRank = obs.Rank
		}
		if prior.CurrentRank != nil && obs.Rank != nil {
			rankChange = *prior.CurrentRank - *obs.Rank
		}
		if startRank != nil && obs.Rank != nil {
			startRankDiff = *startRank - *obs.Rank
		}
	}

	updated := &entity.RankObservation{
		CustomerID:   obs.CustomerID,
		SlotSequence: obs.SlotSequence,
		Keyword:      obs.Keyword,
		LinkURL:      obs.LinkURL,
		Platform:     obs.Platform,
		CurrentRank:  obs.Rank,
		StartRank:    startRank,
		UpdatedAt:    when,
	}
	if err := r.rankRepo.SaveObservation(ctx, updated); err != nil {
		return nil, nil, fmt.Errorf("failed to save observation: %w", err)
	}

	entry := &entity.RankHistoryEntry{
		CustomerID:    obs.CustomerID,
		SlotSequence:  obs.SlotSequence,
		Rank:          obs.Rank,
		RankChange:    rankChange,
		StartRankDiff: startRankDiff,
		ObservedAt:    when,
	}
	if err := r.rankRepo.AppendHistory(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to append history: %w", err)
	}

	r.logger.Info("rank observation recorded",
		zap.String("customer_id", obs.CustomerID),
		zap.Int("slot_sequence", obs.SlotSequence),
		zap.Any("rank", obs.Rank),
		zap.Int("rank_change", rankChange),
		zap.Int("start_rank_diff", startRankDiff),
	)
	return updated, entry, nil
}

// History returns the recorded series for a (customer, slot) pair, oldest
// first.
func (r *recorder) History(ctx context.Context, customerID string, slotSequence int) ([]*entity.RankHistoryEntry, error) {
	return r.rankRepo.HistoryFor(ctx, customerID, slotSequence)
}
