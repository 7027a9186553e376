package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/orchestrator"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/pkg"
)

// jobStore is the subset of postgres.SyncJobRepository the worker poll
// loop needs.
type jobStore interface {
	ListPending(ctx context.Context, limit int) ([]domain.SyncJob, error)
}

// syncLoader resolves the source connection a pending job's sync runs
// against, since SyncJob only carries a sync id.
type syncLoader interface {
	Load(ctx context.Context, syncID string) (domain.Sync, error)
}

const pendingJobBatchSize = 20

// Worker polls for pending SyncJobs and starts each one on the
// scheduler, one goroutine per job so a slow sync never blocks the
// next poll tick.
type Worker struct {
	jobs         jobStore
	syncs        syncLoader
	scheduler    *orchestrator.Scheduler
	pollInterval time.Duration
	logger       mlog.Logger
}

// NewWorker returns a pkg.App polling jobs every pollInterval.
func NewWorker(jobs jobStore, syncs syncLoader, scheduler *orchestrator.Scheduler, pollInterval time.Duration, logger mlog.Logger) *Worker {
	return &Worker{jobs: jobs, syncs: syncs, scheduler: scheduler, pollInterval: pollInterval, logger: logger}
}

// Run satisfies pkg.App. It polls until the process receives a shutdown
// signal; jobs already dispatched keep running to completion in the
// background (the orchestrator owns the job's own lifecycle/context).
func (w *Worker) Run(_ *pkg.Launcher) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		select {
		case <-quit:
			w.logger.Info("worker shutting down")
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	jobs, err := w.jobs.ListPending(ctx, pendingJobBatchSize)
	if err != nil {
		w.logger.Errorf("worker: list pending jobs: %v", err)
		return
	}

	for i := range jobs {
		job := jobs[i]

		sync, err := w.syncs.Load(ctx, job.SyncID)
		if err != nil {
			w.logger.Errorf("worker: load sync %s for job %s: %v", job.SyncID, job.ID, err)
			continue
		}

		go func(job domain.SyncJob, sourceConnectionID string) {
			if err := w.scheduler.Start(ctx, &job, sourceConnectionID); err != nil {
				w.logger.Errorf("worker: job %s: %v", job.ID, err)
			}
		}(job, sync.SourceConnID)
	}
}
