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
)

// SourceConnectionRepository is the Postgres-backed store behind the
// inbound HTTP source connection endpoints.
type SourceConnectionRepository struct {
	connection *mpostgres.Connection
	tableName  string
}

// NewSourceConnectionRepository returns a repository backed by conn.
func NewSourceConnectionRepository(conn *mpostgres.Connection) *SourceConnectionRepository {
	return &SourceConnectionRepository{connection: conn, tableName: "source_connection"}
}

var sourceConnectionColumns = []string{
	"id", "organization_id", "collection_id", "source_kind", "credential_id", "sync_id", "created_at", "updated_at",
}

// Create inserts sc.
func (r *SourceConnectionRepository) Create(ctx context.Context, sc domain.SourceConnection) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.source_connection.create")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("sourceconnection: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Insert(r.tableName).
		Columns("id", "organization_id", "collection_id", "source_kind", "credential_id", "sync_id", "created_at", "updated_at").
		Values(sc.ID, sc.OrganizationID, sc.CollectionID, sc.SourceKind, sc.CredentialID, sc.SyncID, sqrl.Expr("now()"), sqrl.Expr("now()")).
		ToSql()
	if err != nil {
		return fmt.Errorf("sourceconnection: build create: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sourceconnection: create: %w", err)
	}

	return nil
}

// Find loads one source connection by id.
func (r *SourceConnectionRepository) Find(ctx context.Context, id string) (domain.SourceConnection, error) {
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return domain.SourceConnection{}, fmt.Errorf("sourceconnection: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select(sourceConnectionColumns...).
		From(r.tableName).
		Where(sqrl.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.SourceConnection{}, fmt.Errorf("sourceconnection: build find: %w", err)
	}

	row := db.QueryRowContext(ctx, query, args...)
	sc, err := scanSourceConnection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SourceConnection{}, fmt.Errorf("sourceconnection: %s: %w", id, sql.ErrNoRows)
		}
		return domain.SourceConnection{}, fmt.Errorf("sourceconnection: scan find: %w", err)
	}

	return sc, nil
}

// ListByCollection returns every source connection feeding collectionID,
// for the refresh-all fan-out.
func (r *SourceConnectionRepository) ListByCollection(ctx context.Context, collectionID string) ([]domain.SourceConnection, error) {
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("sourceconnection: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select(sourceConnectionColumns...).
		From(r.tableName).
		Where(sqrl.Eq{"collection_id": collectionID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sourceconnection: build list: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sourceconnection: query list: %w", err)
	}
	defer rows.Close()

	var connections []domain.SourceConnection
	for rows.Next() {
		sc, err := scanSourceConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("sourceconnection: scan list row: %w", err)
		}
		connections = append(connections, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sourceconnection: iterate list: %w", err)
	}

	return connections, nil
}

// Delete removes the source connection. Its sync and accumulated entity
// records are left intact for ARF-backed replay and are reaped by a
// separate retention job, not by this call.
func (r *SourceConnectionRepository) Delete(ctx context.Context, id string) error {
	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("sourceconnection: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Delete(r.tableName).
		Where(sqrl.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sourceconnection: build delete: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sourceconnection: delete: %w", err)
	}

	return nil
}

func scanSourceConnection(row rowScanner) (domain.SourceConnection, error) {
	var sc domain.SourceConnection
	if err := row.Scan(&sc.ID, &sc.OrganizationID, &sc.CollectionID, &sc.SourceKind, &sc.CredentialID, &sc.SyncID, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return domain.SourceConnection{}, err
	}
	return sc, nil
}
