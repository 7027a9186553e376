// Package orchestrator drives one SyncJob to completion: resolving the
// Sync's runtime dependencies, pulling batches from the source, running
// them through the resolver and dispatcher, and publishing the sync.* and
// entity.* lifecycle events.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/dispatcher"
	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/eventbus"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"
	"github.com/airweave-ai/ingestion-core/internal/resolver"
	"github.com/airweave-ai/ingestion-core/internal/source"
	"github.com/airweave-ai/ingestion-core/internal/tracker"
	"github.com/airweave-ai/ingestion-core/internal/usage"

	"go.opentelemetry.io/otel/attribute"
)

// JobStore persists SyncJob state transitions and final stats.
type JobStore interface {
	UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errKind, errMsg string) error
	UpdateStats(ctx context.Context, jobID string, stats domain.JobStats) error
	MarkStarted(ctx context.Context, jobID string, at time.Time) error
	MarkFinished(ctx context.Context, jobID string, at time.Time) error
}

// SyncStore loads a Sync's full graph and persists its committed cursor.
type SyncStore interface {
	Load(ctx context.Context, syncID string) (domain.Sync, error)
	CommitCursor(ctx context.Context, syncID string, cursor domain.Cursor) error
}

// OrganizationStore resolves the organization owning a sync, for usage
// guardrail seeding and event stamping.
type OrganizationStore interface {
	Load(ctx context.Context, organizationID string) (domain.Organization, error)
}

// CredentialResolver decrypts the integration credential backing a
// source connection, on demand, for the lifetime of one job only.
type CredentialResolver interface {
	Resolve(ctx context.Context, sourceConnectionID string) (source.Credentials, error)
}

// SourceRegistry maps a source connection to the Factory that builds its
// Stream.
type SourceRegistry interface {
	FactoryFor(sourceConnectionID string) (source.Factory, error)
}

// HandlerChainBuilder constructs the dispatcher and record store for one
// job execution, parameterized by the sync's writable destination slots
// and dedup mode.
type HandlerChainBuilder interface {
	Build(ctx context.Context, sync domain.Sync, jobID string) (*dispatcher.Dispatcher, resolver.RecordStore, error)
}

// OrphanSource supplies the full set of currently-stored fingerprints for
// a sync, for orphan detection at the end of a full sync.
type OrphanSource interface {
	StoredFingerprints(ctx context.Context, syncID string) ([]resolver.OrphanRecord, error)
}

// Orchestrator runs SyncJobs.
type Orchestrator struct {
	jobs     JobStore
	syncs    SyncStore
	orgs     OrganizationStore
	creds    CredentialResolver
	sources  SourceRegistry
	handlers HandlerChainBuilder
	orphans  OrphanSource
	bus      *eventbus.Bus
	usageF   *usage.Factory
	logger   mlog.Logger
}

// New constructs an Orchestrator wired to its collaborators.
func New(jobs JobStore, syncs SyncStore, orgs OrganizationStore, creds CredentialResolver, sources SourceRegistry, handlers HandlerChainBuilder, orphans OrphanSource, bus *eventbus.Bus, usageF *usage.Factory, logger mlog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     jobs,
		syncs:    syncs,
		orgs:     orgs,
		creds:    creds,
		sources:  sources,
		handlers: handlers,
		orphans:  orphans,
		bus:      bus,
		usageF:   usageF,
		logger:   logger,
	}
}

// CancelSignal is polled at batch boundaries; Requested returns true once
// cancellation has been asked for this job.
type CancelSignal interface {
	Requested() bool
}

// Run executes job to completion against sourceConnectionID, following
// the eight-step algorithm: resolve dependencies, publish sync.started,
// iterate batches (resolve -> dispatch -> commit cursor -> publish
// entity.batch_processed), then on exhaustion run orphan detection (full
// sync only), flush usage, and publish sync.completed. Any unhandled
// error at any step publishes sync.failed and marks the job failed;
// cancellation transitions through cancelling to cancelled.
func (o *Orchestrator) Run(ctx context.Context, job *domain.SyncJob, sourceConnectionID string, cancel CancelSignal) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "orchestrator.run")
	defer span.End()
	span.SetAttributes(attribute.String("sync_job.id", job.ID), attribute.String("sync.id", job.SyncID))

	logger := tracking.NewLoggerFromContext(ctx)

	sync, err := o.syncs.Load(ctx, job.SyncID)
	if err != nil {
		return o.fail(ctx, job, "data_integrity", fmt.Errorf("load sync: %w", err))
	}
	if err := sync.ValidateSingleActiveSlot(); err != nil {
		return o.fail(ctx, job, "data_integrity", err)
	}

	org, err := o.orgs.Load(ctx, job.OrganizationID)
	if err != nil {
		return o.fail(ctx, job, "data_integrity", fmt.Errorf("load organization: %w", err))
	}

	disp, records, err := o.handlers.Build(ctx, sync, job.ID)
	if err != nil {
		return o.fail(ctx, job, "data_integrity", fmt.Errorf("build handler chain: %w", err))
	}

	if job.Status == domain.JobStatusCreated {
		if err := job.Transition(domain.JobStatusPending); err != nil {
			return o.fail(ctx, job, "invalid_state", err)
		}
		if err := o.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusPending, "", ""); err != nil {
			return o.fail(ctx, job, "data_integrity", err)
		}
	}

	if err := job.Transition(domain.JobStatusRunning); err != nil {
		return o.fail(ctx, job, "invalid_state", err)
	}
	if err := o.jobs.MarkStarted(ctx, job.ID, time.Now().UTC()); err != nil {
		return o.fail(ctx, job, "data_integrity", err)
	}
	if err := o.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusRunning, "", ""); err != nil {
		return o.fail(ctx, job, "data_integrity", err)
	}

	o.bus.Publish(ctx, domain.NewSyncEvent(domain.EventSyncStarted, org.ID, sync.ID, job.ID))

	guardrail, err := o.usageF.GuardrailFor(ctx, org)
	if err != nil {
		return o.fail(ctx, job, "data_integrity", err)
	}

	creds, err := o.creds.Resolve(ctx, sourceConnectionID)
	if err != nil {
		return o.fail(ctx, job, "upstream", err)
	}

	factory, err := o.sources.FactoryFor(sourceConnectionID)
	if err != nil {
		return o.fail(ctx, job, "bad_request", err)
	}

	stream, err := factory(ctx, creds, sync.Cursor.Raw)
	if err != nil {
		return o.fail(ctx, job, "upstream", err)
	}
	defer stream.Close()

	entityTracker := tracker.New()

	for {
		if cancel != nil && cancel.Requested() {
			return o.cancel(ctx, job, sync, guardrail)
		}

		batch, done, err := stream.NextBatch(ctx)
		if err != nil {
			return o.fail(ctx, job, "upstream", err)
		}

		if len(batch.Entities) > 0 {
			opts := resolver.Options{
				SkipHashComparison: sync.SkipHashComparison || job.Config.SkipHash,
				CollectionDedup:    sync.CollectionDedup,
				SourceConnectionID: sourceConnectionID,
				SyncID:             sync.ID,
			}

			actionBatch, err := resolver.Resolve(batch.Entities, records, opts)
			if err != nil {
				return o.fail(ctx, job, "sync_failure", err)
			}
			for _, name := range job.Config.SkipContentHandlers {
				actionBatch.SkipContentHandlers[name] = true
			}

			if _, err := disp.Dispatch(ctx, actionBatch); err != nil {
				return o.fail(ctx, job, "sync_failure", err)
			}

			recordBatchCounts(entityTracker, actionBatch)

			if sync.MeterEntities {
				if billable := countBillable(actionBatch); billable > 0 {
					if err := guardrail.IsAllowed(domain.UsageActionEntities, billable); err != nil {
						logger.Warnf("orchestrator: usage guardrail rejected job %s: %v", job.ID, err)
					}
					if err := guardrail.Increment(ctx, domain.UsageActionEntities, billable); err != nil {
						logger.Warnf("orchestrator: usage increment failed for job %s: %v", job.ID, err)
					}
				}
			}

			if batch.Cursor != "" {
				newCursor := domain.Cursor{Raw: batch.Cursor, CommittedAtJobID: job.ID, CommittedAt: time.Now().UTC()}
				if err := o.syncs.CommitCursor(ctx, sync.ID, newCursor); err != nil {
					return o.fail(ctx, job, "data_integrity", err)
				}
				sync.Cursor = newCursor
			}

			o.bus.Publish(ctx, domain.NewEntityBatchProcessedEvent(org.ID, sync.ID, job.ID, entityTracker.Stats(), sync.MeterEntities))
		}

		if done {
			break
		}
	}

	if job.Config.FullSync {
		if err := o.runOrphanDetection(ctx, sync, job, entityTracker, disp, org); err != nil {
			return o.fail(ctx, job, "sync_failure", err)
		}
	}

	if err := guardrail.FlushAll(ctx); err != nil {
		logger.Warnf("orchestrator: usage flush failed for job %s: %v", job.ID, err)
	}

	if err := o.jobs.UpdateStats(ctx, job.ID, entityTracker.Stats()); err != nil {
		return o.fail(ctx, job, "data_integrity", err)
	}

	if err := job.Transition(domain.JobStatusCompleted); err != nil {
		return o.fail(ctx, job, "invalid_state", err)
	}
	if err := o.jobs.MarkFinished(ctx, job.ID, time.Now().UTC()); err != nil {
		return err
	}
	if err := o.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusCompleted, "", ""); err != nil {
		return err
	}

	o.bus.Publish(ctx, domain.NewSyncEvent(domain.EventSyncCompleted, org.ID, sync.ID, job.ID))

	return nil
}

func (o *Orchestrator) runOrphanDetection(ctx context.Context, sync domain.Sync, job *domain.SyncJob, t *tracker.EntityTracker, disp *dispatcher.Dispatcher, org domain.Organization) error {
	stored, err := o.orphans.StoredFingerprints(ctx, sync.ID)
	if err != nil {
		return fmt.Errorf("orchestrator: orphan detection: %w", err)
	}

	orphanBatch := resolver.ResolveOrphans(stored, job.ID)
	if len(orphanBatch.Actions) == 0 {
		return nil
	}

	if _, err := disp.Dispatch(ctx, orphanBatch); err != nil {
		return fmt.Errorf("orchestrator: orphan dispatch: %w", err)
	}

	recordBatchCounts(t, orphanBatch)
	o.bus.Publish(ctx, domain.NewEntityBatchProcessedEvent(org.ID, sync.ID, job.ID, t.Stats(), sync.MeterEntities))

	return nil
}

func (o *Orchestrator) cancel(ctx context.Context, job *domain.SyncJob, sync domain.Sync, guardrail *usage.Guardrail) error {
	if err := job.Transition(domain.JobStatusCancelling); err != nil {
		return err
	}
	if err := o.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusCancelling, "", ""); err != nil {
		return err
	}

	if err := guardrail.FlushAll(ctx); err != nil {
		o.logger.Warnf("orchestrator: usage flush failed on cancellation of job %s: %v", job.ID, err)
	}

	if err := job.Transition(domain.JobStatusCancelled); err != nil {
		return err
	}
	if err := o.jobs.MarkFinished(ctx, job.ID, time.Now().UTC()); err != nil {
		return err
	}
	if err := o.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusCancelled, "", ""); err != nil {
		return err
	}

	o.bus.Publish(ctx, domain.NewSyncEvent(domain.EventSyncCancelled, sync.OrganizationID, sync.ID, job.ID))

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, job *domain.SyncJob, errKind string, cause error) error {
	o.logger.Errorf("orchestrator: job %s failed: %v", job.ID, cause)

	kind := errKind
	var invalidTransition domain.ErrInvalidTransition
	if errors.As(cause, &invalidTransition) {
		kind = "invalid_state"
	}

	if job.Status != domain.JobStatusFailed {
		_ = job.Transition(domain.JobStatusFailed)
	}

	_ = o.jobs.MarkFinished(ctx, job.ID, time.Now().UTC())
	_ = o.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, kind, cause.Error())

	failedEvent := domain.NewSyncEvent(domain.EventSyncFailed, job.OrganizationID, job.SyncID, job.ID)
	failedEvent.ErrorKind = kind
	failedEvent.ErrorMessage = cause.Error()
	o.bus.Publish(ctx, failedEvent)

	return cause
}

// recordBatchCounts feeds one resolved ActionBatch's per-kind counts into
// t, bucketed under the entity's concrete shape name.
func recordBatchCounts(t *tracker.EntityTracker, batch resolver.ActionBatch) {
	for _, a := range batch.Actions {
		entityType := "unknown"
		if a.Entity != nil {
			entityType = fmt.Sprintf("%T", a.Entity)
		}

		switch a.Kind {
		case resolver.ActionInsert:
			t.Inserted(entityType, 1)
		case resolver.ActionUpdate:
			t.Updated(entityType, 1)
		case resolver.ActionDelete:
			t.Deleted(entityType, 1)
		case resolver.ActionKeep:
			t.Kept(entityType, 1)
		}
	}
}

// countBillable returns the number of inserted or updated entities in
// batch, the only actions that consume the entities usage quota.
func countBillable(batch resolver.ActionBatch) int64 {
	var n int64
	for _, a := range batch.Actions {
		if a.Kind == resolver.ActionInsert || a.Kind == resolver.ActionUpdate {
			n++
		}
	}
	return n
}
