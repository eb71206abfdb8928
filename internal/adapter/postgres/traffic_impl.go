package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/rank-tracker/internal/entity"
)

// TrafficRepoImpl provides a concrete implementation for the TrafficRepository interface using PostgreSQL.
type TrafficRepoImpl struct {
	db *pgxpool.Pool
}

// NewTrafficRepo creates a new instance of TrafficRepoImpl.
func NewTrafficRepo(db *pgxpool.Pool) *TrafficRepoImpl {
	return &TrafficRepoImpl{db: db}
}

// FindBelowCap retrieves every active slot whose counter has room to grow.
// Slots without a keyword are dormant and skipped.
func (r *TrafficRepoImpl) FindBelowCap(ctx context.Context) ([]*entity.TrafficSlot, error) {
	query := `
		SELECT id, platform, counter, max_traffic, last_traffic_update, traffic_reset_date
		FROM traffic_slots
		WHERE keyword <> '' AND counter < max_traffic
		ORDER BY id ASC;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []*entity.TrafficSlot
	for rows.Next() {
		var s entity.TrafficSlot
		if err := rows.Scan(
			&s.ID,
			&s.Platform,
			&s.Counter,
			&s.MaxTraffic,
			&s.LastTrafficUpdate,
			&s.TrafficResetDate,
		); err != nil {
			return nil, err
		}
		slots = append(slots, &s)
	}

	return slots, rows.Err()
}

// UpdateCounter writes one slot's counter value and update timestamp.
func (r *TrafficRepoImpl) UpdateCounter(ctx context.Context, slotID int64, counter int, updatedAt time.Time) error {
	query := `
		UPDATE traffic_slots
		SET counter = $2, last_traffic_update = $3
		WHERE id = $1;
	`
	_, err := r.db.Exec(ctx, query, slotID, counter, updatedAt)
	return err
}

// ResetAll zeroes every active counter and stamps the reset date.
func (r *TrafficRepoImpl) ResetAll(ctx context.Context, resetDate string, updatedAt time.Time) (int, error) {
	query := `
		UPDATE traffic_slots
		SET counter = 0, last_traffic_update = $2, traffic_reset_date = $1
		WHERE keyword <> '';
	`
	tag, err := r.db.Exec(ctx, query, resetDate, updatedAt)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
