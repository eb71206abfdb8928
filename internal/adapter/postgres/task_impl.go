package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/rank-tracker/internal/entity"
)

// TaskRepoImpl provides a concrete implementation for the TaskRepository interface using PostgreSQL.
type TaskRepoImpl struct {
	db *pgxpool.Pool
}

// NewTaskRepo creates a new instance of TaskRepoImpl.
func NewTaskRepo(db *pgxpool.Pool) *TaskRepoImpl {
	return &TaskRepoImpl{db: db}
}

// Ping reports store reachability for health checks.
func (r *TaskRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// FetchPending retrieves every task row in insertion order. The only read
// contract of the task store is "return all rows not yet consumed".
func (r *TaskRepoImpl) FetchPending(ctx context.Context) ([]*entity.TrackingTask, error) {
	query := `
		SELECT id, keyword, link_url, platform, customer_id, slot_sequence, created_at
		FROM tracking_tasks
		ORDER BY id ASC;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*entity.TrackingTask
	for rows.Next() {
		var t entity.TrackingTask
		if err := rows.Scan(
			&t.ID,
			&t.Keyword,
			&t.LinkURL,
			&t.Platform,
			&t.CustomerID,
			&t.SlotSequence,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, &t)
	}

	return tasks, rows.Err()
}

// Delete removes a consumed task row.
func (r *TaskRepoImpl) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM tracking_tasks WHERE id = $1;`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// InsertBatch enqueues the given tasks in one round trip.
func (r *TaskRepoImpl) InsertBatch(ctx context.Context, tasks []*entity.TrackingTask) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(
			`INSERT INTO tracking_tasks (keyword, link_url, platform, customer_id, slot_sequence, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			t.Keyword, t.LinkURL, t.Platform, t.CustomerID, t.SlotSequence, t.CreatedAt,
		)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return 0, err
	}
	return len(tasks), nil
}
