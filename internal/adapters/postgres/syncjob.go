package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mpostgres"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"

	sqrl "github.com/Masterminds/squirrel"
)

// SyncJobRepository is the Postgres-backed orchestrator.JobStore.
type SyncJobRepository struct {
	connection *mpostgres.Connection
	tableName  string
}

// NewSyncJobRepository returns a repository backed by conn.
func NewSyncJobRepository(conn *mpostgres.Connection) *SyncJobRepository {
	return &SyncJobRepository{connection: conn, tableName: "sync_job"}
}

// Create inserts job in its initial (created) status.
func (r *SyncJobRepository) Create(ctx context.Context, job domain.SyncJob) error {
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("syncjob: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Insert(r.tableName).
		Columns("id", "sync_id", "organization_id", "status", "full_sync", "created_at", "updated_at").
		Values(job.ID, job.SyncID, job.OrganizationID, string(job.Status), job.Config.FullSync, sqrl.Expr("now()"), sqrl.Expr("now()")).
		ToSql()
	if err != nil {
		return fmt.Errorf("syncjob: build create: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("syncjob: create: %w", err)
	}

	return nil
}

// UpdateStatus satisfies orchestrator.JobStore.
func (r *SyncJobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errKind, errMsg string) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.sync_job.update_status")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("syncjob: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(r.tableName).
		Set("status", string(status)).
		Set("error_kind", errKind).
		Set("error_message", errMsg).
		Set("updated_at", sqrl.Expr("now()")).
		Where(sqrl.Eq{"id": jobID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("syncjob: build update status: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("syncjob: update status: %w", err)
	}

	return nil
}

// UpdateStats persists the job's final per-type counters as JSON.
func (r *SyncJobRepository) UpdateStats(ctx context.Context, jobID string, stats domain.JobStats) error {
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("syncjob: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(r.tableName).
		Set("inserted", sumCounts(stats.Inserted)).
		Set("updated_count", sumCounts(stats.Updated)).
		Set("deleted", sumCounts(stats.Deleted)).
		Set("kept", sumCounts(stats.Kept)).
		Set("skipped", sumCounts(stats.Skipped)).
		Set("updated_at", sqrl.Expr("now()")).
		Where(sqrl.Eq{"id": jobID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("syncjob: build update stats: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("syncjob: update stats: %w", err)
	}

	return nil
}

// MarkStarted records started_at.
func (r *SyncJobRepository) MarkStarted(ctx context.Context, jobID string, at time.Time) error {
	return r.setTimestamp(ctx, jobID, "started_at", at)
}

// MarkFinished records finished_at.
func (r *SyncJobRepository) MarkFinished(ctx context.Context, jobID string, at time.Time) error {
	return r.setTimestamp(ctx, jobID, "finished_at", at)
}

func (r *SyncJobRepository) setTimestamp(ctx context.Context, jobID, column string, at time.Time) error {
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("syncjob: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(r.tableName).
		Set(column, at).
		Where(sqrl.Eq{"id": jobID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("syncjob: build set %s: %w", column, err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("syncjob: set %s: %w", column, err)
	}

	return nil
}

// Find loads one SyncJob by id, newest-first ties broken by id.
func (r *SyncJobRepository) Find(ctx context.Context, jobID string) (domain.SyncJob, error) {
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return domain.SyncJob{}, fmt.Errorf("syncjob: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("id", "sync_id", "organization_id", "status", "full_sync", "error_kind", "error_message",
			"inserted", "updated_count", "deleted", "kept", "skipped", "started_at", "finished_at", "created_at", "updated_at").
		From(r.tableName).
		Where(sqrl.Eq{"id": jobID}).
		ToSql()
	if err != nil {
		return domain.SyncJob{}, fmt.Errorf("syncjob: build find: %w", err)
	}

	row := db.QueryRowContext(ctx, query, args...)
	job, err := scanSyncJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SyncJob{}, fmt.Errorf("syncjob: job %s: %w", jobID, sql.ErrNoRows)
		}
		return domain.SyncJob{}, fmt.Errorf("syncjob: scan find: %w", err)
	}

	return job, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncJob(row rowScanner) (domain.SyncJob, error) {
	var job domain.SyncJob
	var status string
	var inserted, updated, deleted, kept, skipped sql.NullInt64
	var startedAt, finishedAt sql.NullTime

	if err := row.Scan(
		&job.ID, &job.SyncID, &job.OrganizationID, &status, &job.Config.FullSync, &job.ErrorKind, &job.ErrorMessage,
		&inserted, &updated, &deleted, &kept, &skipped, &startedAt, &finishedAt, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return domain.SyncJob{}, err
	}

	job.Status = domain.JobStatus(status)
	job.Stats = domain.JobStats{
		Inserted: totalBucket(inserted),
		Updated:  totalBucket(updated),
		Deleted:  totalBucket(deleted),
		Kept:     totalBucket(kept),
		Skipped:  totalBucket(skipped),
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}

	return job, nil
}

// totalBucket represents a stored aggregate total as a single-entry
// counter map, the same shape the in-memory EntityTracker produces keyed
// by entity definition.
func totalBucket(v sql.NullInt64) map[string]int64 {
	if !v.Valid || v.Int64 == 0 {
		return nil
	}
	return map[string]int64{"total": v.Int64}
}

// ListBySourceConnection returns jobs for sourceConnectionID's sync,
// newest-first (§6 inbound API: GET /source-connections/{id}/jobs).
func (r *SyncJobRepository) ListBySourceConnection(ctx context.Context, syncID string) ([]domain.SyncJob, error) {
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("syncjob: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("id", "sync_id", "organization_id", "status", "full_sync", "error_kind", "error_message",
			"inserted", "updated_count", "deleted", "kept", "skipped", "started_at", "finished_at", "created_at", "updated_at").
		From(r.tableName).
		Where(sqrl.Eq{"sync_id": syncID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("syncjob: build list: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("syncjob: query list: %w", err)
	}
	defer rows.Close()

	var jobs []domain.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, fmt.Errorf("syncjob: scan list row: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("syncjob: iterate list: %w", err)
	}

	return jobs, nil
}

// ListPending returns jobs still waiting to run (status created or
// pending), oldest-first, for the worker's poll loop to claim.
func (r *SyncJobRepository) ListPending(ctx context.Context, limit int) ([]domain.SyncJob, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.sync_job.list_pending")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("syncjob: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("id", "sync_id", "organization_id", "status", "full_sync", "error_kind", "error_message",
			"inserted", "updated_count", "deleted", "kept", "skipped", "started_at", "finished_at", "created_at", "updated_at").
		From(r.tableName).
		Where(sqrl.Eq{"status": []string{string(domain.JobStatusCreated), string(domain.JobStatusPending)}}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("syncjob: build list pending: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("syncjob: query list pending: %w", err)
	}
	defer rows.Close()

	var jobs []domain.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, fmt.Errorf("syncjob: scan list pending row: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("syncjob: iterate list pending: %w", err)
	}

	return jobs, nil
}

func sumCounts(m map[string]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}
