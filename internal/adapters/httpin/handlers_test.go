package httpin

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/pkg/mmodel"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSourceConnectionStore struct {
	byID        map[string]domain.SourceConnection
	byID_err    error
	created     []domain.SourceConnection
	deletedIDs  []string
	byCollection map[string][]domain.SourceConnection
}

func (f *fakeSourceConnectionStore) Create(_ context.Context, sc domain.SourceConnection) error {
	f.created = append(f.created, sc)
	return nil
}

func (f *fakeSourceConnectionStore) Find(_ context.Context, id string) (domain.SourceConnection, error) {
	if f.byID_err != nil {
		return domain.SourceConnection{}, f.byID_err
	}
	sc, ok := f.byID[id]
	if !ok {
		return domain.SourceConnection{}, sql.ErrNoRows
	}
	return sc, nil
}

func (f *fakeSourceConnectionStore) Delete(_ context.Context, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeSourceConnectionStore) ListByCollection(_ context.Context, collectionID string) ([]domain.SourceConnection, error) {
	return f.byCollection[collectionID], nil
}

type fakeSyncProvisioner struct {
	created []domain.Sync
}

func (f *fakeSyncProvisioner) Create(_ context.Context, s domain.Sync) error {
	f.created = append(f.created, s)
	return nil
}

type fakeJobStore struct {
	created []domain.SyncJob
	bySync  map[string][]domain.SyncJob
}

func (f *fakeJobStore) Create(_ context.Context, job domain.SyncJob) error {
	f.created = append(f.created, job)
	return nil
}

func (f *fakeJobStore) ListBySourceConnection(_ context.Context, syncID string) ([]domain.SyncJob, error) {
	return f.bySync[syncID], nil
}

type fakeJobScheduler struct {
	started chan string
}

func (f *fakeJobScheduler) Start(_ context.Context, job *domain.SyncJob, _ string) error {
	if f.started != nil {
		f.started <- job.ID
	}
	return nil
}

type fakeAuthResolver struct {
	ctx domain.ApiContext
	err error
}

func (f *fakeAuthResolver) ResolveAPIKey(_ context.Context, _ string) (domain.ApiContext, error) {
	return f.ctx, f.err
}

func (f *fakeAuthResolver) ResolveBearerToken(_ context.Context, _ string) (domain.ApiContext, error) {
	return f.ctx, f.err
}

func adminApiContext() domain.ApiContext {
	return domain.ApiContext{
		AuthMethod:     domain.AuthMethodAuth0,
		Organization:   domain.Organization{ID: "org-1"},
		User:           &domain.User{ID: "user-1"},
		MembershipRole: domain.RoleAdmin,
		Logger:         &mlog.NoneLogger{},
	}
}

func newTestApp(auth AuthResolver, sch *CollectionHandler, sc *SourceConnectionHandler) *fiber.App {
	return NewRouter(&mlog.NoneLogger{}, "*", auth, sch, sc)
}

func TestSourceConnectionHandler_Create(t *testing.T) {
	connections := &fakeSourceConnectionStore{byID: map[string]domain.SourceConnection{}}
	syncs := &fakeSyncProvisioner{}
	jobs := &fakeJobStore{bySync: map[string][]domain.SyncJob{}}
	scheduler := &fakeJobScheduler{}
	logger := &mlog.NoneLogger{}

	sc := NewSourceConnectionHandler(connections, syncs, jobs)
	col := NewCollectionHandler(connections, jobs, scheduler, logger)
	auth := &fakeAuthResolver{ctx: adminApiContext()}

	app := newTestApp(auth, col, sc)

	body := `{"collectionId":"11111111-1111-1111-1111-111111111111","sourceKind":"notion"}`
	req := httptest.NewRequest("POST", "/source-connections", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", "test-key")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out mmodel.SourceConnectionAuthorizationPending
	require.NoError(t, json.Unmarshal(data, &out))
	assert.NotEmpty(t, out.SourceConnectionID)
	assert.Contains(t, out.AuthorizationURL, out.SourceConnectionID)

	assert.Len(t, syncs.created, 1)
	assert.Len(t, connections.created, 1)
}

func TestSourceConnectionHandler_Delete_NotFound(t *testing.T) {
	connections := &fakeSourceConnectionStore{byID: map[string]domain.SourceConnection{}}
	syncs := &fakeSyncProvisioner{}
	jobs := &fakeJobStore{bySync: map[string][]domain.SyncJob{}}
	scheduler := &fakeJobScheduler{}
	logger := &mlog.NoneLogger{}

	sc := NewSourceConnectionHandler(connections, syncs, jobs)
	col := NewCollectionHandler(connections, jobs, scheduler, logger)
	auth := &fakeAuthResolver{ctx: adminApiContext()}

	app := newTestApp(auth, col, sc)

	req := httptest.NewRequest("DELETE", "/source-connections/missing-id", nil)
	req.Header.Set("X-Api-Key", "test-key")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSourceConnectionHandler_Delete_NonAdminRefused(t *testing.T) {
	connections := &fakeSourceConnectionStore{byID: map[string]domain.SourceConnection{
		"sc-1": {ID: "sc-1", SyncID: "sync-1"},
	}}
	syncs := &fakeSyncProvisioner{}
	jobs := &fakeJobStore{bySync: map[string][]domain.SyncJob{}}
	scheduler := &fakeJobScheduler{}
	logger := &mlog.NoneLogger{}

	sc := NewSourceConnectionHandler(connections, syncs, jobs)
	col := NewCollectionHandler(connections, jobs, scheduler, logger)

	memberCtx := adminApiContext()
	memberCtx.MembershipRole = domain.RoleMember
	auth := &fakeAuthResolver{ctx: memberCtx}

	app := newTestApp(auth, col, sc)

	req := httptest.NewRequest("DELETE", "/source-connections/sc-1", nil)
	req.Header.Set("X-Api-Key", "test-key")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Empty(t, connections.deletedIDs)
}

func TestSourceConnectionHandler_ListJobs(t *testing.T) {
	connections := &fakeSourceConnectionStore{byID: map[string]domain.SourceConnection{
		"sc-1": {ID: "sc-1", SyncID: "sync-1"},
	}}
	syncs := &fakeSyncProvisioner{}
	jobs := &fakeJobStore{bySync: map[string][]domain.SyncJob{
		"sync-1": {
			{ID: "job-1", SyncID: "sync-1", Status: domain.JobStatusCompleted, Stats: domain.JobStats{Inserted: map[string]int64{"total": 3}}},
		},
	}}
	scheduler := &fakeJobScheduler{}
	logger := &mlog.NoneLogger{}

	sc := NewSourceConnectionHandler(connections, syncs, jobs)
	col := NewCollectionHandler(connections, jobs, scheduler, logger)
	auth := &fakeAuthResolver{ctx: adminApiContext()}

	app := newTestApp(auth, col, sc)

	req := httptest.NewRequest("GET", "/source-connections/sc-1/jobs", nil)
	req.Header.Set("X-Api-Key", "test-key")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out mmodel.SyncJobs
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(3), out.Items[0].Stats.Inserted)
}

func TestCollectionHandler_RefreshAll(t *testing.T) {
	connections := &fakeSourceConnectionStore{byID: map[string]domain.SourceConnection{}, byCollection: map[string][]domain.SourceConnection{
		"col-1": {
			{ID: "sc-1", SyncID: "sync-1"},
			{ID: "sc-2", SyncID: "sync-2"},
		},
	}}
	syncs := &fakeSyncProvisioner{}
	jobs := &fakeJobStore{bySync: map[string][]domain.SyncJob{}}
	scheduler := &fakeJobScheduler{started: make(chan string, 2)}
	logger := &mlog.NoneLogger{}

	sc := NewSourceConnectionHandler(connections, syncs, jobs)
	col := NewCollectionHandler(connections, jobs, scheduler, logger)
	auth := &fakeAuthResolver{ctx: adminApiContext()}

	app := newTestApp(auth, col, sc)

	req := httptest.NewRequest("POST", "/collections/col-1/refresh_all", nil)
	req.Header.Set("X-Api-Key", "test-key")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, jobs.created, 2)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var triggered []string
	require.NoError(t, json.Unmarshal(data, &triggered))
	assert.Len(t, triggered, 2)
}

func TestCollectionHandler_RefreshAll_EmptyCollectionReturnsEmptyList(t *testing.T) {
	connections := &fakeSourceConnectionStore{byID: map[string]domain.SourceConnection{}, byCollection: map[string][]domain.SourceConnection{}}
	syncs := &fakeSyncProvisioner{}
	jobs := &fakeJobStore{bySync: map[string][]domain.SyncJob{}}
	scheduler := &fakeJobScheduler{}
	logger := &mlog.NoneLogger{}

	sc := NewSourceConnectionHandler(connections, syncs, jobs)
	col := NewCollectionHandler(connections, jobs, scheduler, logger)
	auth := &fakeAuthResolver{ctx: adminApiContext()}

	app := newTestApp(auth, col, sc)

	req := httptest.NewRequest("POST", "/collections/empty-col/refresh_all", nil)
	req.Header.Set("X-Api-Key", "test-key")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var triggered []string
	require.NoError(t, json.Unmarshal(data, &triggered))
	assert.Empty(t, triggered)
}

func TestHealthAndVersion(t *testing.T) {
	connections := &fakeSourceConnectionStore{byID: map[string]domain.SourceConnection{}}
	syncs := &fakeSyncProvisioner{}
	jobs := &fakeJobStore{bySync: map[string][]domain.SyncJob{}}
	scheduler := &fakeJobScheduler{}
	logger := &mlog.NoneLogger{}

	sc := NewSourceConnectionHandler(connections, syncs, jobs)
	col := NewCollectionHandler(connections, jobs, scheduler, logger)
	auth := &fakeAuthResolver{ctx: adminApiContext()}

	app := newTestApp(auth, col, sc)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/version", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
