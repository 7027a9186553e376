// Package postgres adapts the EntityRecord, CollectionEntityRecord,
// SyncCursor, SyncJob, and UsageLedger repositories onto the primary/
// replica postgres hub.
package postgres

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mpostgres"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
)

// UsageLedgerRepository is the Postgres-backed usage.Ledger.
type UsageLedgerRepository struct {
	connection *mpostgres.Connection
	tableName  string
}

// NewUsageLedgerRepository returns a repository backed by conn.
func NewUsageLedgerRepository(conn *mpostgres.Connection) *UsageLedgerRepository {
	return &UsageLedgerRepository{connection: conn, tableName: "usage_ledger"}
}

// Flush persists each action-type delta as an append-only row. A fixed
// iteration order over the caller-supplied map would be nondeterministic
// in Go, so the caller (Guardrail.FlushAll) is responsible for never
// reordering across a single flush call; this method issues one INSERT
// per action type within a single transaction so partial flushes are
// never observed.
func (r *UsageLedgerRepository) Flush(ctx context.Context, organizationID string, deltas map[domain.UsageAction]decimal.Decimal) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.usage_ledger.flush")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("usageledger: get db: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("usageledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar)

	for action, delta := range deltas {
		if delta.IsZero() {
			continue
		}

		query, args, err := builder.Insert(r.tableName).
			Columns("organization_id", "action", "delta", "recorded_at").
			Values(organizationID, string(action), delta.IntPart(), sqrl.Expr("now()")).
			ToSql()
		if err != nil {
			return fmt.Errorf("usageledger: build insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("usageledger: insert %s: %w", action, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("usageledger: commit: %w", err)
	}

	return nil
}

// Totals sums persisted deltas per action type for one organization.
func (r *UsageLedgerRepository) Totals(ctx context.Context, organizationID string) (domain.UsageLedgerTotals, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.usage_ledger.totals")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return domain.UsageLedgerTotals{}, fmt.Errorf("usageledger: get db: %w", err)
	}

	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar)

	query, args, err := builder.Select("action", "COALESCE(SUM(delta), 0)").
		From(r.tableName).
		Where(sqrl.Eq{"organization_id": organizationID}).
		GroupBy("action").
		ToSql()
	if err != nil {
		return domain.UsageLedgerTotals{}, fmt.Errorf("usageledger: build totals query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.UsageLedgerTotals{}, fmt.Errorf("usageledger: query totals: %w", err)
	}
	defer rows.Close()

	totals := map[domain.UsageAction]int64{}
	for rows.Next() {
		var action string
		var sum int64
		if err := rows.Scan(&action, &sum); err != nil {
			return domain.UsageLedgerTotals{}, fmt.Errorf("usageledger: scan totals row: %w", err)
		}
		totals[domain.UsageAction(action)] = sum
	}

	if err := rows.Err(); err != nil {
		return domain.UsageLedgerTotals{}, fmt.Errorf("usageledger: iterate totals: %w", err)
	}

	return domain.UsageLedgerTotals{OrganizationID: organizationID, Totals: totals}, nil
}
