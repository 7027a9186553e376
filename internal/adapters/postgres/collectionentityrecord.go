package postgres

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mpostgres"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"

	sqrl "github.com/Masterminds/squirrel"
)

// CollectionEntityRecordRepository is the Postgres-backed store for
// collection-level dedup records, active only when Sync.CollectionDedup
// is set.
type CollectionEntityRecordRepository struct {
	connection *mpostgres.Connection
	tableName  string
}

// NewCollectionEntityRecordRepository returns a repository backed by conn.
func NewCollectionEntityRecordRepository(conn *mpostgres.Connection) *CollectionEntityRecordRepository {
	return &CollectionEntityRecordRepository{connection: conn, tableName: "collection_entity_record"}
}

// Upsert records rec, claiming entity_id for rec.WinningSourceConnectionID
// if unclaimed (first writer wins, enforced by ON CONFLICT DO NOTHING on
// the winner column).
func (r *CollectionEntityRecordRepository) Upsert(ctx context.Context, rec domain.CollectionEntityRecord) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.collection_entity_record.upsert")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("collectionentityrecord: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Insert(r.tableName).
		Columns("collection_id", "entity_id", "entity_definition_id", "organization_id", "hash", "winning_source_connection_id", "created_at", "updated_at").
		Values(rec.Fingerprint.CollectionID, rec.Fingerprint.EntityID, rec.Fingerprint.EntityDefinitionID, rec.OrganizationID, rec.Hash, rec.WinningSourceConnectionID, sqrl.Expr("now()"), sqrl.Expr("now()")).
		Suffix(`ON CONFLICT (collection_id, entity_id, entity_definition_id) DO UPDATE
			SET hash = EXCLUDED.hash, updated_at = now()
			WHERE collection_entity_record.winning_source_connection_id = EXCLUDED.winning_source_connection_id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("collectionentityrecord: build upsert: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("collectionentityrecord: upsert: %w", err)
	}

	return nil
}

// LoadWinners returns the winning source connection id for every entity_id
// in entityIDs already claimed within collectionID.
func (r *CollectionEntityRecordRepository) LoadWinners(ctx context.Context, collectionID string, entityIDs []string) (map[string]string, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.collection_entity_record.load_winners")
	defer span.End()

	winners := map[string]string{}
	if len(entityIDs) == 0 {
		return winners, nil
	}

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("collectionentityrecord: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("entity_id", "winning_source_connection_id").
		From(r.tableName).
		Where(sqrl.Eq{"collection_id": collectionID, "entity_id": entityIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("collectionentityrecord: build load winners: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("collectionentityrecord: query load winners: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityID, winner string
		if err := rows.Scan(&entityID, &winner); err != nil {
			return nil, fmt.Errorf("collectionentityrecord: scan load winners row: %w", err)
		}
		winners[entityID] = winner
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collectionentityrecord: iterate load winners: %w", err)
	}

	return winners, nil
}

// WithWinners merges winners into snapshot, for collection-dedup mode.
func (s *Snapshot) WithWinners(winners map[string]string) *Snapshot {
	s.winners = winners
	return s
}
