package httpin

import (
	"context"
	"database/sql"
	"errors"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"
	"github.com/airweave-ai/ingestion-core/pkg/coreerrors"
	"github.com/airweave-ai/ingestion-core/pkg/mmodel"
	nethttp "github.com/airweave-ai/ingestion-core/pkg/net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SourceConnectionStore is the persistence port behind the source
// connection lifecycle endpoints.
type SourceConnectionStore interface {
	Create(ctx context.Context, sc domain.SourceConnection) error
	Find(ctx context.Context, id string) (domain.SourceConnection, error)
	Delete(ctx context.Context, id string) error
	ListByCollection(ctx context.Context, collectionID string) ([]domain.SourceConnection, error)
}

// SyncProvisioner creates the Sync backing a brand new source connection.
type SyncProvisioner interface {
	Create(ctx context.Context, sync domain.Sync) error
}

// JobStore is the persistence port behind job creation and listing.
type JobStore interface {
	Create(ctx context.Context, job domain.SyncJob) error
	ListBySourceConnection(ctx context.Context, syncID string) ([]domain.SyncJob, error)
}

// JobScheduler runs a job to completion, refusing a second concurrent run
// for the same sync.
type JobScheduler interface {
	Start(ctx context.Context, job *domain.SyncJob, sourceConnectionID string) error
}

// SourceConnectionHandler serves the source connection lifecycle routes.
type SourceConnectionHandler struct {
	connections SourceConnectionStore
	syncs       SyncProvisioner
	jobs        JobStore
}

// NewSourceConnectionHandler returns a handler wired to its collaborators.
func NewSourceConnectionHandler(connections SourceConnectionStore, syncs SyncProvisioner, jobs JobStore) *SourceConnectionHandler {
	return &SourceConnectionHandler{connections: connections, syncs: syncs, jobs: jobs}
}

// Create provisions a source connection and its sync, then returns an
// authorization-pending response: credential exchange happens out of
// band through the (out-of-scope) OAuth broker, which calls back once
// the flow completes.
func (h *SourceConnectionHandler) Create(payload any, c *fiber.Ctx) error {
	input, ok := payload.(*mmodel.CreateSourceConnectionInput)
	if !ok {
		return nethttp.WithError(c, coreerrors.ValidateInternalError(nil, "SourceConnection"))
	}

	apiCtx := apiContextFromFiber(c)
	ctx := c.UserContext()

	syncID := uuid.New().String()
	sourceConnectionID := uuid.New().String()

	sync := domain.Sync{
		ID:             syncID,
		OrganizationID: apiCtx.Organization.ID,
		CollectionID:   input.CollectionID,
		SourceConnID:   sourceConnectionID,
		Connections: []domain.SyncConnection{
			{ID: uuid.New().String(), SyncID: syncID, Role: domain.SyncConnectionRoleSource},
		},
	}
	if err := h.syncs.Create(ctx, sync); err != nil {
		return nethttp.WithError(c, coreerrors.ValidateInternalError(err, "Sync"))
	}

	sc := domain.SourceConnection{
		ID:             sourceConnectionID,
		OrganizationID: apiCtx.Organization.ID,
		CollectionID:   input.CollectionID,
		SourceKind:     input.SourceKind,
		SyncID:         syncID,
	}
	if err := h.connections.Create(ctx, sc); err != nil {
		return nethttp.WithError(c, coreerrors.ValidateInternalError(err, "SourceConnection"))
	}

	return nethttp.Accepted(c, mmodel.SourceConnectionAuthorizationPending{
		SourceConnectionID: sourceConnectionID,
		AuthorizationURL:   "/oauth/authorize?source_connection_id=" + sourceConnectionID,
	})
}

// Delete removes a source connection. Its sync and accumulated entity
// records are retained; see SourceConnectionRepository.Delete.
func (h *SourceConnectionHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx := c.UserContext()

	if _, err := h.connections.Find(ctx, id); err != nil {
		return nethttp.WithError(c, sourceConnectionLookupError(err))
	}

	if err := h.connections.Delete(ctx, id); err != nil {
		return nethttp.WithError(c, coreerrors.ValidateInternalError(err, "SourceConnection"))
	}

	return nethttp.NoContent(c)
}

// ListJobs returns every job run against the source connection's sync,
// newest first.
func (h *SourceConnectionHandler) ListJobs(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx := c.UserContext()

	sc, err := h.connections.Find(ctx, id)
	if err != nil {
		return nethttp.WithError(c, sourceConnectionLookupError(err))
	}

	jobs, err := h.jobs.ListBySourceConnection(ctx, sc.SyncID)
	if err != nil {
		return nethttp.WithError(c, coreerrors.ValidateInternalError(err, "SyncJob"))
	}

	return nethttp.OK(c, mmodel.SyncJobs{Items: toSyncJobs(jobs)})
}

// CollectionHandler serves the collection-scoped routes.
type CollectionHandler struct {
	connections SourceConnectionStore
	jobs        JobStore
	scheduler   JobScheduler
	logger      mlog.Logger
}

// NewCollectionHandler returns a handler wired to its collaborators.
func NewCollectionHandler(connections SourceConnectionStore, jobs JobStore, scheduler JobScheduler, logger mlog.Logger) *CollectionHandler {
	return &CollectionHandler{connections: connections, jobs: jobs, scheduler: scheduler, logger: logger}
}

// RefreshAll triggers a full-sync job for every source connection feeding
// the collection and returns the started job ids as a bare list. A
// collection with no source connections is not an error: it returns 200
// with an empty list. A source connection whose sync already has a job
// running is skipped rather than failing the whole request.
func (h *CollectionHandler) RefreshAll(c *fiber.Ctx) error {
	collectionID := c.Params("id")
	ctx := c.UserContext()
	apiCtx := apiContextFromFiber(c)

	connections, err := h.connections.ListByCollection(ctx, collectionID)
	if err != nil {
		return nethttp.WithError(c, coreerrors.ValidateInternalError(err, "Collection"))
	}
	triggered := make([]string, 0, len(connections))
	if len(connections) == 0 {
		return nethttp.OK(c, triggered)
	}
	bg := tracking.ContextWithLogger(context.Background(), tracking.NewLoggerFromContext(ctx))
	bg = tracking.ContextWithTracer(bg, tracking.NewTracerFromContext(ctx))

	for _, sc := range connections {
		job := domain.SyncJob{
			ID:             uuid.New().String(),
			SyncID:         sc.SyncID,
			OrganizationID: apiCtx.Organization.ID,
			Status:         domain.JobStatusCreated,
			Config:         domain.JobConfig{FullSync: true},
		}

		if err := h.jobs.Create(ctx, job); err != nil {
			h.logger.Errorf("httpin: refresh_all: create job for source connection %s: %v", sc.ID, err)
			continue
		}
		if err := job.Transition(domain.JobStatusPending); err != nil {
			h.logger.Errorf("httpin: refresh_all: transition job for source connection %s: %v", sc.ID, err)
			continue
		}

		triggered = append(triggered, job.ID)

		go func(job domain.SyncJob, sourceConnectionID string) {
			if err := h.scheduler.Start(bg, &job, sourceConnectionID); err != nil {
				h.logger.Errorf("httpin: refresh_all: run job %s: %v", job.ID, err)
			}
		}(job, sc.ID)
	}

	return nethttp.OK(c, triggered)
}

func toSyncJobs(jobs []domain.SyncJob) []mmodel.SyncJob {
	out := make([]mmodel.SyncJob, len(jobs))
	for i, j := range jobs {
		out[i] = mmodel.SyncJob{
			ID:             j.ID,
			SyncID:         j.SyncID,
			OrganizationID: j.OrganizationID,
			Status:         string(j.Status),
			Stats: mmodel.SyncJobStats{
				Inserted: sumTotal(j.Stats.Inserted),
				Updated:  sumTotal(j.Stats.Updated),
				Deleted:  sumTotal(j.Stats.Deleted),
				Kept:     sumTotal(j.Stats.Kept),
				Skipped:  sumTotal(j.Stats.Skipped),
			},
			ErrorKind:    j.ErrorKind,
			ErrorMessage: j.ErrorMessage,
			StartedAt:    j.StartedAt,
			FinishedAt:   j.FinishedAt,
			CreatedAt:    j.CreatedAt,
			UpdatedAt:    j.UpdatedAt,
		}
	}
	return out
}

// sourceConnectionLookupError maps a repository not-found (sql.ErrNoRows)
// onto the shared entity-not-found taxonomy; any other failure is an
// internal error.
func sourceConnectionLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return coreerrors.ValidateBusinessError(coreerrors.ErrEntityNotFound, "SourceConnection")
	}
	return coreerrors.ValidateInternalError(err, "SourceConnection")
}

func sumTotal(m map[string]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}
