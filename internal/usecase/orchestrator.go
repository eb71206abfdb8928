package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/internal/platform"
	"github.com/user/rank-tracker/internal/repository"
	"github.com/user/rank-tracker/internal/resolver"
	"github.com/user/rank-tracker/pkg/metrics"
	"go.uber.org/zap"
)

// OrchestratorOptions tunes the loop's pacing.
type OrchestratorOptions struct {
	// IdleSleep is the pause after a poll that found no tasks.
	IdleSleep time.Duration
	// ErrorSleep is the longer backoff after a cycle-level failure.
	ErrorSleep time.Duration
	// InterTaskPause spaces out tasks within one platform group.
	InterTaskPause time.Duration
}

// Orchestrator is the continuous rank-tracking process: poll the task store,
// group by platform, dispatch each task through a scoped browser session,
// record the outcome, consume the task. Individual task failures never stop
// the loop.
type Orchestrator struct {
	taskRepo repository.TaskRepository
	registry *platform.Registry
	session  repository.BrowserSession
	resolver *resolver.Resolver
	recorder Recorder
	opts     OrchestratorOptions
	logger   *zap.Logger

	processed int
	failed    int
	started   time.Time
}

// NewOrchestrator creates the pipeline loop.
func NewOrchestrator(
	taskRepo repository.TaskRepository,
	registry *platform.Registry,
	session repository.BrowserSession,
	res *resolver.Resolver,
	rec Recorder,
	opts OrchestratorOptions,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		taskRepo: taskRepo,
		registry: registry,
		session:  session,
		resolver: res,
		recorder: rec,
		opts:     opts,
		logger:   logger,
	}
}

// Run processes tasks until ctx is cancelled. It never returns under normal
// operation; on shutdown it emits the run summary and reports ctx's error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.started = time.Now()
	o.logger.Info("orchestrator started",
		zap.Any("platforms", o.registry.Platforms()),
	)

	for {
		if err := ctx.Err(); err != nil {
			o.logSummary()
			return err
		}

		handled, err := o.runCycle(ctx)
		switch {
		case err != nil && errors.Is(err, context.Canceled):
			o.logSummary()
			return err
		case err != nil:
			// The loop is fault-isolated from its cycles: log and back off.
			o.logger.Error("cycle failed", zap.Error(err))
			o.sleep(ctx, o.opts.ErrorSleep)
		case handled == 0:
			o.logger.Debug("task list empty")
			o.sleep(ctx, o.opts.IdleSleep)
		}
	}
}

// runCycle polls once and processes everything it found. The returned count
// is the number of tasks handled, zero when the store was empty.
func (o *Orchestrator) runCycle(ctx context.Context) (int, error) {
	tasks, err := o.taskRepo.FetchPending(ctx)
	if err != nil {
		return 0, err
	}
	metrics.TasksPending.Set(float64(len(tasks)))
	if len(tasks) == 0 {
		return 0, nil
	}

	o.logger.Info("processing batch", zap.Int("tasks", len(tasks)))

	for _, group := range groupByPlatform(tasks) {
		scraper, err := o.registry.Lookup(group.platform)
		if err != nil {
			// The tag was valid at startup validation, so a row like this is
			// corrupt data; its tasks stay queued and are counted failed.
			o.logger.Error("skipping group with unknown platform",
				zap.String("platform", string(group.platform)),
				zap.Int("tasks", len(group.tasks)),
				zap.Error(err),
			)
			o.failed += len(group.tasks)
			continue
		}

		o.logger.Info("platform group start",
			zap.String("platform", string(group.platform)),
			zap.Int("tasks", len(group.tasks)),
		)
		for i, task := range group.tasks {
			if err := ctx.Err(); err != nil {
				return len(tasks), err
			}
			o.processTask(ctx, scraper, task)
			if i < len(group.tasks)-1 {
				o.sleep(ctx, o.opts.InterTaskPause)
			}
		}
	}
	return len(tasks), nil
}

// processTask runs one task end to end. All failure modes are absorbed here:
// the worst outcome is a task left in the store for the next poll.
func (o *Orchestrator) processTask(ctx context.Context, scraper platform.Scraper, task *entity.TrackingTask) {
	o.logger.Info("task start",
		zap.Int64("task_id", task.ID),
		zap.String("keyword", task.Keyword),
		zap.String("platform", string(task.Platform)),
	)

	var result *entity.RankResult
	err := o.session.WithPage(ctx, func(page repository.PageFetcher) error {
		var rerr error
		result, rerr = o.resolver.Resolve(ctx, page, scraper, task)
		return rerr
	})
	if err != nil {
		o.failed++
		metrics.ResolutionsTotal.WithLabelValues(string(task.Platform), "failed").Inc()
		if errors.Is(err, platform.ErrNoTargetID) {
			// The link can never yield a target; retrying is pointless, so
			// the task is consumed as a terminal failure.
			o.logger.Error("task discarded: no target identifier",
				zap.Int64("task_id", task.ID),
				zap.String("link_url", task.LinkURL),
			)
			o.deleteTask(ctx, task)
			return
		}
		// Transient crawl or browser fault: keep the task for the next poll.
		o.logger.Error("task failed, left for retry",
			zap.Int64("task_id", task.ID),
			zap.Error(err),
		)
		return
	}

	outcome := "not_found"
	if result.Found {
		outcome = "found"
	}
	metrics.ResolutionsTotal.WithLabelValues(string(task.Platform), outcome).Inc()
	metrics.ResolveDuration.WithLabelValues(string(task.Platform)).Observe(result.ProcessingTime.Seconds())
	metrics.PagesScanned.WithLabelValues(string(task.Platform)).Observe(float64(result.PagesChecked))

	o.logger.Info("task resolved",
		zap.Int64("task_id", task.ID),
		zap.Bool("found", result.Found),
		zap.Any("rank", result.Rank),
		zap.Int("candidates", result.TotalCandidates),
		zap.Int("pages", result.PagesChecked),
		zap.Duration("took", result.ProcessingTime),
	)

	// A not-found outcome over an empty listing carries no information worth
	// a history row; anything else is recorded, null rank included.
	if result.Found || result.TotalCandidates > 0 {
		_, _, err = o.recorder.RecordObservation(ctx, Observation{
			CustomerID:   task.CustomerID,
			SlotSequence: task.SlotSequence,
			Keyword:      task.Keyword,
			LinkURL:      task.LinkURL,
			Platform:     task.Platform,
			Rank:         result.Rank,
		})
		if err != nil {
			// At-least-once delivery: the task survives so a later cycle
			// retries, at the accepted cost of duplicate crawl work.
			o.failed++
			o.logger.Error("persistence failed, task left for retry",
				zap.Int64("task_id", task.ID),
				zap.Error(err),
			)
			return
		}
	}

	o.deleteTask(ctx, task)
	o.processed++
}

func (o *Orchestrator) deleteTask(ctx context.Context, task *entity.TrackingTask) {
	if err := o.taskRepo.Delete(ctx, task.ID); err != nil {
		o.logger.Error("task delete failed",
			zap.Int64("task_id", task.ID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (o *Orchestrator) logSummary() {
	elapsed := time.Since(o.started)
	total := o.processed + o.failed
	rate := 0
	if total > 0 {
		rate = o.processed * 100 / total
	}
	o.logger.Info("orchestrator stopped",
		zap.Int("processed", o.processed),
		zap.Int("failed", o.failed),
		zap.Duration("elapsed", elapsed),
		zap.Int("success_rate_pct", rate),
	)
}

type taskGroup struct {
	platform entity.Platform
	tasks    []*entity.TrackingTask
}

// groupByPlatform buckets tasks by platform tag, preserving both the order
// platforms first appear in the batch and the fetch order within a group.
func groupByPlatform(tasks []*entity.TrackingTask) []taskGroup {
	index := make(map[entity.Platform]int)
	var groups []taskGroup
	for _, t := range tasks {
		i, ok := index[t.Platform]
		if !ok {
			i = len(groups)
			index[t.Platform] = i
			groups = append(groups, taskGroup{platform: t.Platform})
		}
		groups[i].tasks = append(groups[i].tasks, t)
	}
	return groups
}
