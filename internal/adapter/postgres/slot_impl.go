package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/rank-tracker/internal/entity"
)

// SlotRepoImpl provides a concrete implementation for the SlotRepository interface using PostgreSQL.
type SlotRepoImpl struct {
	db *pgxpool.Pool
}

// NewSlotRepo creates a new instance of SlotRepoImpl.
func NewSlotRepo(db *pgxpool.Pool) *SlotRepoImpl {
	return &SlotRepoImpl{db: db}
}

// FindTracked returns the customer's registered slots for one platform,
// ordered by slot sequence. An empty slotIDs filter selects all of them.
func (r *SlotRepoImpl) FindTracked(ctx context.Context, customerID string, platform entity.Platform, slotIDs []int64) ([]*entity.TrackedSlot, error) {
	query := `
		SELECT id, customer_id, slot_sequence, keyword, link_url, platform, current_rank, last_check_date
		FROM tracked_slots
		WHERE customer_id = $1 AND platform = $2 AND keyword <> ''
		  AND (cardinality($3::bigint[]) = 0 OR id = ANY($3::bigint[]))
		ORDER BY slot_sequence ASC;
	`
	if slotIDs == nil {
		slotIDs = []int64{}
	}
	rows, err := r.db.Query(ctx, query, customerID, platform, slotIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []*entity.TrackedSlot
	for rows.Next() {
		var s entity.TrackedSlot
		if err := rows.Scan(
			&s.ID,
			&s.CustomerID,
			&s.SlotSequence,
			&s.Keyword,
			&s.LinkURL,
			&s.Platform,
			&s.CurrentRank,
			&s.LastCheckDate,
		); err != nil {
			return nil, err
		}
		slots = append(slots, &s)
	}

	return slots, rows.Err()
}

// StampLastCheck records the refresh request time on the source slot rows.
func (r *SlotRepoImpl) StampLastCheck(ctx context.Context, slotIDs []int64, checkedAt time.Time) error {
	if len(slotIDs) == 0 {
		return nil
	}
	query := `UPDATE tracked_slots SET last_check_date = $2 WHERE id = ANY($1::bigint[]);`
	_, err := r.db.Exec(ctx, query, slotIDs, checkedAt)
	return err
}
