package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// ErrSyncAlreadyRunning is returned when the scheduler is asked to start
// a job for a sync that already has one running.
type ErrSyncAlreadyRunning struct {
	SyncID string
}

func (e ErrSyncAlreadyRunning) Error() string {
	return fmt.Sprintf("orchestrator: sync %s already has a running job", e.SyncID)
}

// cancelFlag is a CancelSignal backed by an atomic-by-mutex bool, set by
// Scheduler.Cancel and polled by Orchestrator.Run at batch boundaries.
type cancelFlag struct {
	mu        sync.Mutex
	requested bool
}

func (f *cancelFlag) Requested() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requested
}

func (f *cancelFlag) request() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = true
}

// Scheduler enforces the "at most one running job per sync" invariant
// (§5 Orderings). Starting a job for a sync that already has one running
// is refused rather than queued; the caller decides whether to retry.
type Scheduler struct {
	orchestrator *Orchestrator

	mu      sync.Mutex
	running map[string]*cancelFlag
}

// NewScheduler returns a Scheduler driving orch.
func NewScheduler(orch *Orchestrator) *Scheduler {
	return &Scheduler{
		orchestrator: orch,
		running:      map[string]*cancelFlag{},
	}
}

// Start runs job in the current goroutine if no job is already running
// for job.SyncID, refusing otherwise. Callers that want background
// execution should invoke Start from their own goroutine; the scheduler
// itself does not spawn one, matching the orchestrator's
// suspend-at-any-await design rather than hiding a goroutine inside a
// library call.
func (s *Scheduler) Start(ctx context.Context, job *domain.SyncJob, sourceConnectionID string) error {
	flag, err := s.acquire(job.SyncID)
	if err != nil {
		return err
	}
	defer s.release(job.SyncID)

	return s.orchestrator.Run(ctx, job, sourceConnectionID, flag)
}

// Cancel requests cancellation of the running job for syncID, if any. A
// no-op if no job is currently running for that sync.
func (s *Scheduler) Cancel(syncID string) {
	s.mu.Lock()
	flag, ok := s.running[syncID]
	s.mu.Unlock()

	if ok {
		flag.request()
	}
}

// IsRunning reports whether syncID currently has a job in flight.
func (s *Scheduler) IsRunning(syncID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[syncID]
	return ok
}

func (s *Scheduler) acquire(syncID string) (*cancelFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[syncID]; ok {
		return nil, ErrSyncAlreadyRunning{SyncID: syncID}
	}

	flag := &cancelFlag{}
	s.running[syncID] = flag
	return flag, nil
}

func (s *Scheduler) release(syncID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, syncID)
}
