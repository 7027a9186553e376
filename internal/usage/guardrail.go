// Package usage implements the per-organization usage guardrail: buffered
// counters that enforce quotas and periodically flush to the ledger.
package usage

import (
	"context"
	"fmt"
	"sync"

	"github.com/airweave-ai/ingestion-core/internal/domain"

	"github.com/shopspring/decimal"
)

// FlushThreshold is the buffered-delta magnitude (summed across action
// types) at which Increment/Decrement triggers an automatic flush.
const FlushThreshold = 100

// Ledger is the persistence boundary a Guardrail flushes to.
type Ledger interface {
	Flush(ctx context.Context, organizationID string, deltas map[domain.UsageAction]decimal.Decimal) error
	Totals(ctx context.Context, organizationID string) (domain.UsageLedgerTotals, error)
}

// ErrUsageLimitExceeded is returned by IsAllowed when the requested
// amount would exceed the organization's plan limit for that action type.
type ErrUsageLimitExceeded struct {
	OrganizationID string
	Action         domain.UsageAction
	Limit          int64
	Requested      int64
}

func (e ErrUsageLimitExceeded) Error() string {
	return fmt.Sprintf("usage: organization %s would exceed %s limit %d (requested %d)",
		e.OrganizationID, e.Action, e.Limit, e.Requested)
}

// Guardrail enforces and accounts quotas for one organization. Buffered
// net delta plus persisted ledger value must always equal the observed
// action count (§4.4 invariant); flushes are coalesced per action type
// but never reordered across types, so Flush iterates a fixed order.
type Guardrail struct {
	organizationID string
	ledger         Ledger
	limits         map[domain.UsageAction]int64

	mu      sync.Mutex
	buffer  map[domain.UsageAction]decimal.Decimal
	totals  map[domain.UsageAction]int64
	pending int64
}

// NewGuardrail constructs a Guardrail for one organization, seeded with
// its current persisted totals.
func NewGuardrail(organizationID string, ledger Ledger, limits map[domain.UsageAction]int64, seedTotals map[domain.UsageAction]int64) *Guardrail {
	totals := make(map[domain.UsageAction]int64, len(seedTotals))
	for k, v := range seedTotals {
		totals[k] = v
	}

	return &Guardrail{
		organizationID: organizationID,
		ledger:         ledger,
		limits:         limits,
		buffer:         map[domain.UsageAction]decimal.Decimal{},
		totals:         totals,
	}
}

// IsAllowed reports whether incrementing action by amount would stay
// within the organization's plan limit. It fails with
// ErrUsageLimitExceeded, not a bool false, per the §4.4 contract.
func (g *Guardrail) IsAllowed(action domain.UsageAction, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	limit, hasLimit := g.limits[action]
	if !hasLimit {
		return nil
	}

	current := g.totals[action] + g.bufferedInt(action)
	if current+amount > limit {
		return ErrUsageLimitExceeded{
			OrganizationID: g.organizationID,
			Action:         action,
			Limit:          limit,
			Requested:      current + amount,
		}
	}

	return nil
}

func (g *Guardrail) bufferedInt(action domain.UsageAction) int64 {
	d, ok := g.buffer[action]
	if !ok {
		return 0
	}
	return d.IntPart()
}

// Increment buffers a positive delta for action, flushing automatically
// once the buffered magnitude reaches FlushThreshold.
func (g *Guardrail) Increment(ctx context.Context, action domain.UsageAction, amount int64) error {
	return g.adjust(ctx, action, decimal.NewFromInt(amount))
}

// Decrement buffers a negative delta, symmetric with Increment, used only
// where entities are removed.
func (g *Guardrail) Decrement(ctx context.Context, action domain.UsageAction, amount int64) error {
	return g.adjust(ctx, action, decimal.NewFromInt(-amount))
}

func (g *Guardrail) adjust(ctx context.Context, action domain.UsageAction, delta decimal.Decimal) error {
	g.mu.Lock()

	existing := g.buffer[action]
	g.buffer[action] = existing.Add(delta)
	g.pending += delta.Abs().IntPart()

	shouldFlush := g.pending >= FlushThreshold

	g.mu.Unlock()

	if shouldFlush {
		return g.FlushAll(ctx)
	}

	return nil
}

// FlushAll persists every buffered delta to the ledger and resets the
// buffer. Iterates action types in a fixed order so flushes are never
// reordered across types.
func (g *Guardrail) FlushAll(ctx context.Context) error {
	g.mu.Lock()

	if len(g.buffer) == 0 {
		g.mu.Unlock()
		return nil
	}

	deltas := make(map[domain.UsageAction]decimal.Decimal, len(g.buffer))
	for k, v := range g.buffer {
		deltas[k] = v
	}

	g.mu.Unlock()

	if err := g.ledger.Flush(ctx, g.organizationID, deltas); err != nil {
		return fmt.Errorf("usage: flush organization %s: %w", g.organizationID, err)
	}

	g.mu.Lock()
	for action, delta := range deltas {
		g.totals[action] += delta.IntPart()
		g.buffer[action] = g.buffer[action].Sub(delta)
		if g.buffer[action].IsZero() {
			delete(g.buffer, action)
		}
	}
	g.pending = 0
	g.mu.Unlock()

	return nil
}

// Totals returns the current observed totals (persisted + buffered) per
// action type, for tests and diagnostics.
func (g *Guardrail) Totals() map[domain.UsageAction]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[domain.UsageAction]int64, len(g.totals))
	for k, v := range g.totals {
		out[k] = v
	}
	for k, v := range g.buffer {
		out[k] += v.IntPart()
	}

	return out
}
