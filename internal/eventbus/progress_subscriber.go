package eventbus

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// ProgressPublisher republishes a compact progress snapshot on an
// org-scoped pub/sub channel.
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, organizationID, channel string, snapshot map[string]any) error
}

// SyncProgressRelay listens on sync.* and entity.* and republishes a
// compact progress snapshot for UI/CLI consumers.
type SyncProgressRelay struct {
	publisher ProgressPublisher
}

// NewSyncProgressRelay returns a relay forwarding to publisher.
func NewSyncProgressRelay(publisher ProgressPublisher) *SyncProgressRelay {
	return &SyncProgressRelay{publisher: publisher}
}

// Register subscribes this relay to the bus on both sync.* and
// entity.*.
func (r *SyncProgressRelay) Register(bus *Bus) {
	bus.Subscribe("sync_progress_relay", "sync.*", r.Handle)
	bus.Subscribe("sync_progress_relay", "entity.*", r.Handle)
}

// Handle republishes a compact snapshot of event onto the organization's
// progress channel.
func (r *SyncProgressRelay) Handle(ctx context.Context, event domain.DomainEvent) error {
	channel := "progress:" + event.OrganizationID()
	return r.publisher.PublishProgress(ctx, event.OrganizationID(), channel, event.ToWebhookPayload())
}
