package usage

import (
	"context"
	"fmt"
	"sync"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// Factory guarantees a single Guardrail instance per organization within
// a process. It is a process-wide singleton whose lifecycle is tied to
// process startup and graceful shutdown — FlushAllOrganizations must run
// on shutdown so no buffered usage is lost.
type Factory struct {
	ledger Ledger

	mu         sync.Mutex
	guardrails map[string]*Guardrail
}

// NewFactory returns a Factory backed by ledger.
func NewFactory(ledger Ledger) *Factory {
	return &Factory{
		ledger:     ledger,
		guardrails: map[string]*Guardrail{},
	}
}

// GuardrailFor returns the single Guardrail instance for org, constructing
// it (and seeding it from the persisted ledger) on first access.
func (f *Factory) GuardrailFor(ctx context.Context, org domain.Organization) (*Guardrail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if g, ok := f.guardrails[org.ID]; ok {
		return g, nil
	}

	var limits map[domain.UsageAction]int64
	if org.Plan != nil {
		limits = org.Plan.UsageLimits
	}

	totals, err := f.ledger.Totals(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("usage: factory: seed totals for organization %s: %w", org.ID, err)
	}

	g := NewGuardrail(org.ID, f.ledger, limits, totals.Totals)
	f.guardrails[org.ID] = g

	return g, nil
}

// FlushAllOrganizations flushes every live Guardrail. Called on graceful
// shutdown.
func (f *Factory) FlushAllOrganizations(ctx context.Context) error {
	f.mu.Lock()
	guardrails := make([]*Guardrail, 0, len(f.guardrails))
	for _, g := range f.guardrails {
		guardrails = append(guardrails, g)
	}
	f.mu.Unlock()

	var firstErr error
	for _, g := range guardrails {
		if err := g.FlushAll(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
