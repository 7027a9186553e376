package postgres

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mpostgres"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"
	"github.com/airweave-ai/ingestion-core/internal/resolver"

	sqrl "github.com/Masterminds/squirrel"
)

// EntityRecordRepository is the Postgres-backed store for per-sync
// EntityRecords. Since resolver.RecordStore is a synchronous, in-memory
// contract (the resolver runs over one already-fetched batch with no
// further suspension points), this repository's read path is a batch
// prefetch into a Snapshot rather than a per-entity Lookup call.
type EntityRecordRepository struct {
	connection *mpostgres.Connection
	tableName  string
}

// NewEntityRecordRepository returns a repository backed by conn.
func NewEntityRecordRepository(conn *mpostgres.Connection) *EntityRecordRepository {
	return &EntityRecordRepository{connection: conn, tableName: "entity_record"}
}

// Upsert inserts or updates the record for rec's fingerprint, advancing
// hash and last_seen_job_id.
func (r *EntityRecordRepository) Upsert(ctx context.Context, rec domain.EntityRecord) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.entity_record.upsert")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("entityrecord: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Insert(r.tableName).
		Columns("sync_id", "entity_id", "entity_definition_id", "organization_id", "hash", "last_seen_job_id", "created_at", "updated_at").
		Values(rec.Fingerprint.SyncID, rec.Fingerprint.EntityID, rec.Fingerprint.EntityDefinitionID, rec.OrganizationID, rec.Hash, rec.LastSeenJobID, sqrl.Expr("now()"), sqrl.Expr("now()")).
		Suffix("ON CONFLICT (sync_id, entity_id, entity_definition_id) DO UPDATE SET hash = EXCLUDED.hash, last_seen_job_id = EXCLUDED.last_seen_job_id, updated_at = now()").
		ToSql()
	if err != nil {
		return fmt.Errorf("entityrecord: build upsert: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("entityrecord: upsert: %w", err)
	}

	return nil
}

// Delete removes the record for fp.
func (r *EntityRecordRepository) Delete(ctx context.Context, fp domain.EntityFingerprint) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.entity_record.delete")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("entityrecord: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Delete(r.tableName).
		Where(sqrl.Eq{"sync_id": fp.SyncID, "entity_id": fp.EntityID, "entity_definition_id": fp.EntityDefinitionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("entityrecord: build delete: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("entityrecord: delete: %w", err)
	}

	return nil
}

// Snapshot is an in-memory resolver.RecordStore prefetched for one batch.
type Snapshot struct {
	records map[domain.EntityFingerprint]storedRecord
	winners map[string]string
}

type storedRecord struct {
	hash          string
	lastSeenJobID string
}

// Lookup satisfies resolver.RecordStore.
func (s *Snapshot) Lookup(fp domain.EntityFingerprint) (hash string, lastSeenJobID string, ok bool) {
	rec, found := s.records[fp]
	return rec.hash, rec.lastSeenJobID, found
}

// WinningSourceConnection satisfies resolver.RecordStore.
func (s *Snapshot) WinningSourceConnection(entityID string) string {
	return s.winners[entityID]
}

// LoadSnapshot prefetches the stored records for every (entity_id,
// entity_definition_id) pair in ids, for one sync, into a Snapshot the
// resolver can run against without further suspension.
func (r *EntityRecordRepository) LoadSnapshot(ctx context.Context, syncID string, ids []domain.EntityFingerprint) (*Snapshot, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.entity_record.load_snapshot")
	defer span.End()

	snapshot := &Snapshot{records: map[domain.EntityFingerprint]storedRecord{}}

	if len(ids) == 0 {
		return snapshot, nil
	}

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("entityrecord: get db: %w", err)
	}

	entityIDs := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if !seen[id.EntityID] {
			seen[id.EntityID] = true
			entityIDs = append(entityIDs, id.EntityID)
		}
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("entity_id", "entity_definition_id", "hash", "last_seen_job_id").
		From(r.tableName).
		Where(sqrl.Eq{"sync_id": syncID, "entity_id": entityIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("entityrecord: build load snapshot: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("entityrecord: query load snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityID, entityDefinitionID, hash, lastSeenJobID string
		if err := rows.Scan(&entityID, &entityDefinitionID, &hash, &lastSeenJobID); err != nil {
			return nil, fmt.Errorf("entityrecord: scan load snapshot row: %w", err)
		}
		fp := domain.EntityFingerprint{SyncID: syncID, EntityID: entityID, EntityDefinitionID: entityDefinitionID}
		snapshot.records[fp] = storedRecord{hash: hash, lastSeenJobID: lastSeenJobID}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("entityrecord: iterate load snapshot: %w", err)
	}

	return snapshot, nil
}

// StoredFingerprints returns every fingerprint and its last-seen job id
// currently recorded for syncID, for the orchestrator's full-sync orphan
// detection pass (orchestrator.OrphanSource).
func (r *EntityRecordRepository) StoredFingerprints(ctx context.Context, syncID string) ([]resolver.OrphanRecord, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.entity_record.stored_fingerprints")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("entityrecord: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("entity_id", "entity_definition_id", "last_seen_job_id").
		From(r.tableName).
		Where(sqrl.Eq{"sync_id": syncID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("entityrecord: build stored fingerprints: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("entityrecord: query stored fingerprints: %w", err)
	}
	defer rows.Close()

	var out []resolver.OrphanRecord
	for rows.Next() {
		var rec resolver.OrphanRecord
		rec.Fingerprint.SyncID = syncID
		if err := rows.Scan(&rec.Fingerprint.EntityID, &rec.Fingerprint.EntityDefinitionID, &rec.LastSeenJobID); err != nil {
			return nil, fmt.Errorf("entityrecord: scan stored fingerprint: %w", err)
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("entityrecord: iterate stored fingerprints: %w", err)
	}

	return out, nil
}
