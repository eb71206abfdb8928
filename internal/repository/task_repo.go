package repository

import (
	"context"

	"github.com/user/rank-tracker/internal/entity"
)

// TaskRepository defines the interface for the durable tracking-task store.
type TaskRepository interface {
	// FetchPending returns all tasks not yet consumed, in insertion order.
	FetchPending(ctx context.Context) ([]*entity.TrackingTask, error)
	// Delete removes a task after its cycle completed with a terminal outcome.
	Delete(ctx context.Context, id int64) error
	// InsertBatch enqueues a set of tasks and returns the number inserted.
	InsertBatch(ctx context.Context, tasks []*entity.TrackingTask) (int, error)
}
