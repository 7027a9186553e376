package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/dispatcher"
	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/eventbus"
	"github.com/airweave-ai/ingestion-core/internal/handlers"
	"github.com/airweave-ai/ingestion-core/internal/orchestrator"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/internal/resolver"
	"github.com/airweave-ai/ingestion-core/internal/source"
	"github.com/airweave-ai/ingestion-core/internal/usage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobStore struct {
	statuses []domain.JobStatus
	stats    domain.JobStats
}

func (s *fakeJobStore) UpdateStatus(_ context.Context, _ string, status domain.JobStatus, _, _ string) error {
	s.statuses = append(s.statuses, status)
	return nil
}
func (s *fakeJobStore) UpdateStats(_ context.Context, _ string, stats domain.JobStats) error {
	s.stats = stats
	return nil
}
func (s *fakeJobStore) MarkStarted(_ context.Context, _ string, _ time.Time) error  { return nil }
func (s *fakeJobStore) MarkFinished(_ context.Context, _ string, _ time.Time) error { return nil }

type fakeSyncStore struct {
	sync    domain.Sync
	cursors []domain.Cursor
}

func (s *fakeSyncStore) Load(_ context.Context, _ string) (domain.Sync, error) { return s.sync, nil }
func (s *fakeSyncStore) CommitCursor(_ context.Context, _ string, cursor domain.Cursor) error {
	s.cursors = append(s.cursors, cursor)
	s.sync.Cursor = cursor
	return nil
}

type fakeOrgStore struct{ org domain.Organization }

func (s *fakeOrgStore) Load(_ context.Context, _ string) (domain.Organization, error) {
	return s.org, nil
}

type fakeCredResolver struct{}

func (fakeCredResolver) Resolve(_ context.Context, _ string) (source.Credentials, error) {
	return source.Credentials{}, nil
}

type fakeStream struct {
	batches []source.Batch
	idx     int
}

func (s *fakeStream) NextBatch(_ context.Context) (source.Batch, bool, error) {
	if s.idx >= len(s.batches) {
		return source.Batch{}, true, nil
	}
	b := s.batches[s.idx]
	s.idx++
	return b, s.idx >= len(s.batches), nil
}
func (s *fakeStream) Close() error { return nil }

type fakeSourceRegistry struct{ stream source.Stream }

func (r *fakeSourceRegistry) FactoryFor(_ string) (source.Factory, error) {
	return func(_ context.Context, _ source.Credentials, _ string) (source.Stream, error) {
		return r.stream, nil
	}, nil
}

type fakeRecordStore struct{}

func (fakeRecordStore) Lookup(_ domain.EntityFingerprint) (string, string, bool) { return "", "", false }
func (fakeRecordStore) WinningSourceConnection(_ string) string                 { return "" }

type recordingHandler struct {
	seen []resolver.Action
}

func (h *recordingHandler) Name() string   { return "recorder" }
func (h *recordingHandler) Tolerant() bool { return false }
func (h *recordingHandler) Apply(_ context.Context, actions []resolver.Action) (handlers.Result, error) {
	h.seen = append(h.seen, actions...)
	return handlers.Result{}, nil
}

type fakeHandlerBuilder struct {
	handler *recordingHandler
}

func (b *fakeHandlerBuilder) Build(_ context.Context, _ domain.Sync, _ string) (*dispatcher.Dispatcher, resolver.RecordStore, error) {
	return dispatcher.New(b.handler), fakeRecordStore{}, nil
}

type fakeOrphanSource struct{}

func (fakeOrphanSource) StoredFingerprints(_ context.Context, _ string) ([]resolver.OrphanRecord, error) {
	return nil, nil
}

func chunk(id string) source.Entity {
	return source.ChunkEntity{Base: source.Base{ID: source.Identity{EntityID: id, EntityDefinitionID: "def"}}}
}

func newHarness(t *testing.T, batches []source.Batch) (*orchestrator.Orchestrator, *fakeJobStore, *fakeSyncStore, *recordingHandler) {
	t.Helper()

	jobStore := &fakeJobStore{}
	syncStore := &fakeSyncStore{sync: domain.Sync{ID: "sync-1", OrganizationID: "org-1", MeterEntities: true}}
	orgStore := &fakeOrgStore{org: domain.Organization{ID: "org-1"}}
	rec := &recordingHandler{}
	builder := &fakeHandlerBuilder{handler: rec}
	bus := eventbus.New(&mlog.NoneLogger{})
	usageF := usage.NewFactory(stubLedger{})

	orch := orchestrator.New(
		jobStore, syncStore, orgStore, fakeCredResolver{},
		&fakeSourceRegistry{stream: &fakeStream{batches: batches}},
		builder, fakeOrphanSource{}, bus, usageF, &mlog.NoneLogger{},
	)

	return orch, jobStore, syncStore, rec
}

type stubLedger struct{}

func (stubLedger) Flush(_ context.Context, _ string, _ map[domain.UsageAction]decimal.Decimal) error {
	return nil
}
func (stubLedger) Totals(_ context.Context, orgID string) (domain.UsageLedgerTotals, error) {
	return domain.UsageLedgerTotals{OrganizationID: orgID, Totals: map[domain.UsageAction]int64{}}, nil
}

func TestRun_S1_EmptyRefresh_CompletesWithoutError(t *testing.T) {
	orch, jobStore, _, rec := newHarness(t, []source.Batch{{}})

	job := &domain.SyncJob{ID: "job-1", SyncID: "sync-1", OrganizationID: "org-1", Status: domain.JobStatusPending}
	err := orch.Run(context.Background(), job, "conn-1", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Empty(t, rec.seen)
	assert.Contains(t, jobStore.statuses, domain.JobStatusCompleted)
}

func TestRun_ProcessesBatchesAndCommitsCursor(t *testing.T) {
	orch, _, syncStore, rec := newHarness(t, []source.Batch{
		{Entities: []source.Entity{chunk("e1"), chunk("e2")}, Cursor: "cursor-1"},
	})

	job := &domain.SyncJob{ID: "job-1", SyncID: "sync-1", OrganizationID: "org-1", Status: domain.JobStatusPending}
	err := orch.Run(context.Background(), job, "conn-1", nil)

	require.NoError(t, err)
	assert.Len(t, rec.seen, 2)
	require.Len(t, syncStore.cursors, 1)
	assert.Equal(t, "cursor-1", syncStore.cursors[0].Raw)
	assert.Equal(t, "job-1", syncStore.cursors[0].CommittedAtJobID)
}

type alwaysCancel struct{}

func (alwaysCancel) Requested() bool { return true }

func TestRun_S6_CancellationTransitionsToCancelled(t *testing.T) {
	orch, _, _, _ := newHarness(t, []source.Batch{
		{Entities: []source.Entity{chunk("e1")}, Cursor: "cursor-1"},
	})

	job := &domain.SyncJob{ID: "job-1", SyncID: "sync-1", OrganizationID: "org-1", Status: domain.JobStatusPending}
	err := orch.Run(context.Background(), job, "conn-1", alwaysCancel{})

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)
}

// TestRun_AdvancesCreatedToPendingBeforeRunning covers a job handed to
// Run straight out of the created status (the worker poll loop's entry
// point): Run must advance it through pending before running rather than
// failing the created -> running jump.
func TestRun_AdvancesCreatedToPendingBeforeRunning(t *testing.T) {
	orch, jobStore, _, _ := newHarness(t, []source.Batch{{}})

	job := &domain.SyncJob{ID: "job-1", SyncID: "sync-1", OrganizationID: "org-1", Status: domain.JobStatusCreated}
	err := orch.Run(context.Background(), job, "conn-1", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	require.GreaterOrEqual(t, len(jobStore.statuses), 2)
	assert.Equal(t, domain.JobStatusPending, jobStore.statuses[0])
	assert.Contains(t, jobStore.statuses, domain.JobStatusRunning)
	assert.Contains(t, jobStore.statuses, domain.JobStatusCompleted)
}
