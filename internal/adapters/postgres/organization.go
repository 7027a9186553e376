package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mpostgres"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/bxcodec/dbresolver/v2"
)

// OrganizationRepository is the Postgres-backed orchestrator.OrganizationStore.
type OrganizationRepository struct {
	connection *mpostgres.Connection
	tableName  string
	planTable  string
}

// NewOrganizationRepository returns a repository backed by conn.
func NewOrganizationRepository(conn *mpostgres.Connection) *OrganizationRepository {
	return &OrganizationRepository{connection: conn, tableName: "organization", planTable: "billing_plan"}
}

// Load returns the organization and its billing plan, if one is attached.
func (r *OrganizationRepository) Load(ctx context.Context, organizationID string) (domain.Organization, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.organization.load")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("organization: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("id", "name", "created_at", "updated_at").
		From(r.tableName).
		Where(sqrl.Eq{"id": organizationID}).
		ToSql()
	if err != nil {
		return domain.Organization{}, fmt.Errorf("organization: build load: %w", err)
	}

	var org domain.Organization
	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Organization{}, fmt.Errorf("organization: %s: %w", organizationID, sql.ErrNoRows)
		}
		return domain.Organization{}, fmt.Errorf("organization: scan load: %w", err)
	}

	plan, err := r.loadPlan(ctx, db, organizationID)
	if err != nil {
		return domain.Organization{}, err
	}
	org.Plan = plan

	return org, nil
}

// FindByAPIKeyHash looks up the organization owning a hashed API key.
// Keys are stored hashed (sha256 hex); the caller never persists or
// compares a raw key.
func (r *OrganizationRepository) FindByAPIKeyHash(ctx context.Context, hash string) (domain.Organization, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.organization.find_by_api_key_hash")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("organization: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("id").
		From(r.tableName).
		Where(sqrl.Eq{"api_key_hash": hash}).
		ToSql()
	if err != nil {
		return domain.Organization{}, fmt.Errorf("organization: build find_by_api_key_hash: %w", err)
	}

	var organizationID string
	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&organizationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Organization{}, fmt.Errorf("organization: api key: %w", sql.ErrNoRows)
		}
		return domain.Organization{}, fmt.Errorf("organization: scan find_by_api_key_hash: %w", err)
	}

	return r.Load(ctx, organizationID)
}

// URLFor satisfies rabbitmq.EndpointResolver: it returns the HTTP
// endpoint an organization has configured to receive webhook deliveries.
// An organization with no endpoint configured returns "", nil rather
// than an error — the consumer treats that as nothing to deliver.
func (r *OrganizationRepository) URLFor(ctx context.Context, organizationID string) (string, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "postgres.organization.url_for")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		return "", fmt.Errorf("organization: get db: %w", err)
	}

	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("webhook_url").
		From(r.tableName).
		Where(sqrl.Eq{"id": organizationID}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("organization: build url_for: %w", err)
	}

	var url sql.NullString
	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("organization: %s: %w", organizationID, sql.ErrNoRows)
		}
		return "", fmt.Errorf("organization: scan url_for: %w", err)
	}

	return url.String, nil
}

func (r *OrganizationRepository) loadPlan(ctx context.Context, db dbresolver.DB, organizationID string) (*domain.BillingPlan, error) {
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("name", "rate_limit_window_seconds", "rate_limit_quota", "usage_limits").
		From(r.planTable).
		Where(sqrl.Eq{"organization_id": organizationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("organization: build load plan: %w", err)
	}

	var plan domain.BillingPlan
	var windowSeconds int64
	var limitsRaw []byte

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&plan.Name, &windowSeconds, &plan.RateLimitQuota, &limitsRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("organization: scan load plan: %w", err)
	}

	plan.RateLimitWindow = time.Duration(windowSeconds) * time.Second

	rawLimits := map[string]int64{}
	if len(limitsRaw) > 0 {
		if err := json.Unmarshal(limitsRaw, &rawLimits); err != nil {
			return nil, fmt.Errorf("organization: decode usage limits: %w", err)
		}
	}
	plan.UsageLimits = make(map[domain.UsageAction]int64, len(rawLimits))
	for action, limit := range rawLimits {
		plan.UsageLimits[domain.UsageAction(action)] = limit
	}

	return &plan, nil
}
