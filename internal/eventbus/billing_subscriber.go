package eventbus

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// UsageIncrementer is the subset of the usage guardrail factory a billing
// subscriber needs.
type UsageIncrementer interface {
	GuardrailIncrement(ctx context.Context, organizationID string, action domain.UsageAction, amount int64) error
}

// SyncBillingHandler listens on entity.* and increments the
// organization's entities counter by inserted+updated, ignoring events
// whose billable flag is false.
type SyncBillingHandler struct {
	usage UsageIncrementer
}

// NewSyncBillingHandler returns a handler incrementing usage via usage.
func NewSyncBillingHandler(usage UsageIncrementer) *SyncBillingHandler {
	return &SyncBillingHandler{usage: usage}
}

// Register subscribes this handler to the bus on "entity.*".
func (h *SyncBillingHandler) Register(bus *Bus) {
	bus.Subscribe("sync_billing_handler", "entity.*", h.Handle)
}

// Handle increments usage for billable entity.batch_processed events.
func (h *SyncBillingHandler) Handle(ctx context.Context, event domain.DomainEvent) error {
	batch, ok := event.(domain.EntityBatchProcessedEvent)
	if !ok {
		return fmt.Errorf("sync_billing_handler: unexpected event type %T for %s", event, event.EventType())
	}

	if !batch.Billable {
		return nil
	}

	return h.usage.GuardrailIncrement(ctx, batch.OrganizationID(), domain.UsageActionEntities, batch.Inserted+batch.Updated)
}
