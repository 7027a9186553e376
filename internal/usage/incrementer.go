package usage

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// OrganizationLoader resolves the organization a usage increment is
// billed against, for seeding/rate-limit lookups on first touch.
type OrganizationLoader interface {
	Load(ctx context.Context, organizationID string) (domain.Organization, error)
}

// Incrementer adapts Factory to eventbus.UsageIncrementer: the bus hands
// subscribers an organization id, while the Guardrail API is keyed off a
// loaded domain.Organization (it needs the billing plan's limits).
type Incrementer struct {
	factory *Factory
	orgs    OrganizationLoader
}

// NewIncrementer returns an Incrementer backed by factory, loading
// organizations through orgs.
func NewIncrementer(factory *Factory, orgs OrganizationLoader) *Incrementer {
	return &Incrementer{factory: factory, orgs: orgs}
}

// GuardrailIncrement satisfies eventbus.UsageIncrementer.
func (i *Incrementer) GuardrailIncrement(ctx context.Context, organizationID string, action domain.UsageAction, amount int64) error {
	org, err := i.orgs.Load(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("usage: incrementer: load organization %s: %w", organizationID, err)
	}

	guardrail, err := i.factory.GuardrailFor(ctx, org)
	if err != nil {
		return err
	}

	return guardrail.Increment(ctx, action, amount)
}
