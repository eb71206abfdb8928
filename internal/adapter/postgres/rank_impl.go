package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/rank-tracker/internal/entity"
)

// RankRepoImpl provides a concrete implementation for the RankRepository interface using PostgreSQL.
type RankRepoImpl struct {
	db *pgxpool.Pool
}

// NewRankRepo creates a new instance of RankRepoImpl.
func NewRankRepo(db *pgxpool.Pool) *RankRepoImpl {
	return &RankRepoImpl{db: db}
}

// FindObservation retrieves the latest observation for a (customer, slot)
// pair. A missing row is reported as (nil, nil), not an error.
func (r *RankRepoImpl) FindObservation(ctx context.Context, customerID string, slotSequence int) (*entity.RankObservation, error) {
	query := `
		SELECT customer_id, slot_sequence, keyword, link_url, platform, current_rank, start_rank, updated_at
		FROM rank_observations
		WHERE customer_id = $1 AND slot_sequence = $2;
	`
	row := r.db.QueryRow(ctx, query, customerID, slotSequence)

	var obs entity.RankObservation
	err := row.Scan(
		&obs.CustomerID,
		&obs.SlotSequence,
		&obs.Keyword,
		&obs.LinkURL,
		&obs.Platform,
		&obs.CurrentRank,
		&obs.StartRank,
		&obs.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

// SaveObservation upserts the observation row. The COALESCE keeps an existing
// start_rank immutable: it is written once, on the first observation that
// carries one, and never overwritten afterward.
func (r *RankRepoImpl) SaveObservation(ctx context.Context, obs *entity.RankObservation) error {
	query := `
		INSERT INTO rank_observations (customer_id, slot_sequence, keyword, link_url, platform, current_rank, start_rank, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (customer_id, slot_sequence) DO UPDATE SET
			keyword = EXCLUDED.keyword,
			link_url = EXCLUDED.link_url,
			platform = EXCLUDED.platform,
			current_rank = EXCLUDED.current_rank,
			start_rank = COALESCE(rank_observations.start_rank, EXCLUDED.start_rank),
			updated_at = EXCLUDED.updated_at;
	`
	_, err := r.db.Exec(ctx, query,
		obs.CustomerID,
		obs.SlotSequence,
		obs.Keyword,
		obs.LinkURL,
		obs.Platform,
		obs.CurrentRank,
		obs.StartRank,
		obs.UpdatedAt,
	)
	return err
}

// AppendHistory inserts one immutable history row.
func (r *RankRepoImpl) AppendHistory(ctx context.Context, entry *entity.RankHistoryEntry) error {
	query := `
		INSERT INTO rank_history (customer_id, slot_sequence, rank, rank_change, start_rank_diff, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db.Exec(ctx, query,
		entry.CustomerID,
		entry.SlotSequence,
		entry.Rank,
		entry.RankChange,
		entry.StartRankDiff,
		entry.ObservedAt,
	)
	return err
}

// HistoryFor returns the full series for a (customer, slot) pair, oldest
// first. The read has no side effects and is re-readable.
func (r *RankRepoImpl) HistoryFor(ctx context.Context, customerID string, slotSequence int) ([]*entity.RankHistoryEntry, error) {
	query := `
		SELECT id, customer_id, slot_sequence, rank, rank_change, start_rank_diff, observed_at
		FROM rank_history
		WHERE customer_id = $1 AND slot_sequence = $2
		ORDER BY observed_at ASC, id ASC;
	`
	rows, err := r.db.Query(ctx, query, customerID, slotSequence)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*entity.RankHistoryEntry
	for rows.Next() {
		var e entity.RankHistoryEntry
		if err := rows.Scan(
			&e.ID,
			&e.CustomerID,
			&e.SlotSequence,
			&e.Rank,
			&e.RankChange,
			&e.StartRankDiff,
			&e.ObservedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
