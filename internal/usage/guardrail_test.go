package usage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/usage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu       sync.Mutex
	persisted map[domain.UsageAction]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{persisted: map[domain.UsageAction]int64{}}
}

func (f *fakeLedger) Flush(_ context.Context, _ string, deltas map[domain.UsageAction]decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for action, delta := range deltas {
		f.persisted[action] += delta.IntPart()
	}
	return nil
}

func (f *fakeLedger) Totals(_ context.Context, _ string) (domain.UsageLedgerTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := make(map[domain.UsageAction]int64, len(f.persisted))
	for k, v := range f.persisted {
		totals[k] = v
	}
	return domain.UsageLedgerTotals{Totals: totals}, nil
}

// TestGuardrail_Invariant7_FlushAllEqualsSumOfIncrements grounds
// invariant 7: for any finite sequence of increments and one flush_all,
// the ledger delta equals the sum of increments.
func TestGuardrail_Invariant7_FlushAllEqualsSumOfIncrements(t *testing.T) {
	ledger := newFakeLedger()
	g := usage.NewGuardrail("org-1", ledger, nil, nil)
	ctx := context.Background()

	increments := []int64{3, 7, 1, 42, 5}
	var want int64
	for _, n := range increments {
		want += n
		require.NoError(t, g.Increment(ctx, domain.UsageActionEntities, n))
	}

	require.NoError(t, g.FlushAll(ctx))

	ledger.mu.Lock()
	got := ledger.persisted[domain.UsageActionEntities]
	ledger.mu.Unlock()

	assert.Equal(t, want, got)
}

func TestGuardrail_IncrementDecrement_NetsToLedger(t *testing.T) {
	ledger := newFakeLedger()
	g := usage.NewGuardrail("org-1", ledger, nil, nil)
	ctx := context.Background()

	require.NoError(t, g.Increment(ctx, domain.UsageActionEntities, 10))
	require.NoError(t, g.Decrement(ctx, domain.UsageActionEntities, 4))
	require.NoError(t, g.FlushAll(ctx))

	assert.Equal(t, int64(6), g.Totals()[domain.UsageActionEntities])
}

func TestGuardrail_IsAllowed_RejectsOverLimit(t *testing.T) {
	ledger := newFakeLedger()
	limits := map[domain.UsageAction]int64{domain.UsageActionEntities: 10}
	g := usage.NewGuardrail("org-1", ledger, limits, nil)
	ctx := context.Background()

	require.NoError(t, g.Increment(ctx, domain.UsageActionEntities, 8))
	require.NoError(t, g.IsAllowed(domain.UsageActionEntities, 2))

	err := g.IsAllowed(domain.UsageActionEntities, 3)
	require.Error(t, err)
	assert.IsType(t, usage.ErrUsageLimitExceeded{}, err)
}

func TestGuardrail_AutoFlush_AtThreshold(t *testing.T) {
	ledger := newFakeLedger()
	g := usage.NewGuardrail("org-1", ledger, nil, nil)
	ctx := context.Background()

	require.NoError(t, g.Increment(ctx, domain.UsageActionEntities, usage.FlushThreshold))

	ledger.mu.Lock()
	got := ledger.persisted[domain.UsageActionEntities]
	ledger.mu.Unlock()

	assert.Equal(t, int64(usage.FlushThreshold), got)
}
