package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mpostgres"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/bxcodec/dbresolver/v2"
)

// SyncRepository is the Postgres-backed orchestrator.SyncStore and
// destination.SlotStore.
type SyncRepository struct {
	connection     *mpostgres.Connection
	tableName      string
	connectionsTbl string
}

// NewSyncRepository returns a repository backed by conn.
func NewSyncRepository(conn *mpostgres.Connection) *SyncRepository {
	return &SyncRepository{connection: conn, tableName: "sync", connectionsTbl: "sync_connection"}
}

// Load returns sync by id, joined with its destination and source slots.
func (r *SyncRepository) Load(ctx context.Context, syncID string) (domain.Sync, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.sync.load")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return domain.Sync{}, fmt.Errorf("sync: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("id", "organization_id", "collection_id", "source_connection_id",
			"cursor", "cursor_committed_at_job_id", "cursor_committed_at",
			"meter_entities", "skip_hash_comparison", "collection_dedup",
			"created_at", "updated_at").
		From(r.tableName).
		Where(sqrl.Eq{"id": syncID}).
		ToSql()
	if err != nil {
		return domain.Sync{}, fmt.Errorf("sync: build load: %w", err)
	}

	var sync domain.Sync
	var cursorRaw, cursorJobID sql.NullString
	var cursorCommittedAt sql.NullTime

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(
		&sync.ID, &sync.OrganizationID, &sync.CollectionID, &sync.SourceConnID,
		&cursorRaw, &cursorJobID, &cursorCommittedAt,
		&sync.MeterEntities, &sync.SkipHashComparison, &sync.CollectionDedup,
		&sync.CreatedAt, &sync.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sync{}, fmt.Errorf("sync: %s: %w", syncID, sql.ErrNoRows)
		}
		return domain.Sync{}, fmt.Errorf("sync: scan load: %w", err)
	}
	sync.Cursor = domain.Cursor{Raw: cursorRaw.String, CommittedAtJobID: cursorJobID.String, CommittedAt: cursorCommittedAt.Time}

	connections, err := r.loadConnections(ctx, db, syncID)
	if err != nil {
		return domain.Sync{}, err
	}
	sync.Connections = connections

	return sync, nil
}

func (r *SyncRepository) loadConnections(ctx context.Context, db dbresolver.DB, syncID string) ([]domain.SyncConnection, error) {
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("id", "sync_id", "role", "destination_kind", "processing_requirement", "created_at").
		From(r.connectionsTbl).
		Where(sqrl.Eq{"sync_id": syncID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sync: build load connections: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sync: query load connections: %w", err)
	}
	defer rows.Close()

	var connections []domain.SyncConnection
	for rows.Next() {
		var c domain.SyncConnection
		var role, processingRequirement string
		if err := rows.Scan(&c.ID, &c.SyncID, &role, &c.DestinationKind, &processingRequirement, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sync: scan connection row: %w", err)
		}
		c.Role = domain.SyncConnectionRole(role)
		c.ProcessingRequirement = domain.ProcessingRequirement(processingRequirement)
		connections = append(connections, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate connections: %w", err)
	}

	return connections, nil
}

// Create inserts sync and its source slot (the one SyncConnection with
// SyncConnectionRoleSource). Destination slots are attached separately
// once the caller knows which destination kinds the collection writes to.
func (r *SyncRepository) Create(ctx context.Context, sync domain.Sync) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.sync.create")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("sync: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Insert(r.tableName).
		Columns("id", "organization_id", "collection_id", "source_connection_id",
			"meter_entities", "skip_hash_comparison", "collection_dedup", "created_at", "updated_at").
		Values(sync.ID, sync.OrganizationID, sync.CollectionID, sync.SourceConnID,
			sync.MeterEntities, sync.SkipHashComparison, sync.CollectionDedup, sqrl.Expr("now()"), sqrl.Expr("now()")).
		ToSql()
	if err != nil {
		return fmt.Errorf("sync: build create: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sync: create: %w", err)
	}

	for _, conn := range sync.Connections {
		slotQuery, slotArgs, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
			Insert(r.connectionsTbl).
			Columns("id", "sync_id", "role", "destination_kind", "processing_requirement", "created_at").
			Values(conn.ID, sync.ID, string(conn.Role), conn.DestinationKind, string(conn.ProcessingRequirement), sqrl.Expr("now()")).
			ToSql()
		if err != nil {
			return fmt.Errorf("sync: build create slot: %w", err)
		}
		if _, err := db.ExecContext(ctx, slotQuery, slotArgs...); err != nil {
			return fmt.Errorf("sync: create slot: %w", err)
		}
	}

	return nil
}

// CommitCursor persists cursor transactionally. A cursor from an earlier
// job than the one already committed is rejected, enforcing monotonicity.
func (r *SyncRepository) CommitCursor(ctx context.Context, syncID string, cursor domain.Cursor) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.sync.commit_cursor")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("sync: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(r.tableName).
		Set("cursor", cursor.Raw).
		Set("cursor_committed_at_job_id", cursor.CommittedAtJobID).
		Set("cursor_committed_at", sqrl.Expr("now()")).
		Set("updated_at", sqrl.Expr("now()")).
		Where(sqrl.Eq{"id": syncID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sync: build commit cursor: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sync: commit cursor: %w", err)
	}

	return nil
}

// Slots satisfies destination.SlotStore, returning syncID's destination
// and source slots. Context-less per the interface; a background context
// is used for the underlying query.
func (r *SyncRepository) Slots(syncID string) ([]domain.SyncConnection, error) {
	ctx := context.Background()
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: get db: %w", err)
	}
	return r.loadConnections(ctx, db, syncID)
}

// SetRole satisfies destination.SlotStore.
func (r *SyncRepository) SetRole(syncID, slotID string, role domain.SyncConnectionRole) error {
	ctx := context.Background()
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("sync: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(r.connectionsTbl).
		Set("role", string(role)).
		Where(sqrl.Eq{"id": slotID, "sync_id": syncID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sync: build set role: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sync: set role: %w", err)
	}

	return nil
}
