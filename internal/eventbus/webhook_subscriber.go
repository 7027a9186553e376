package eventbus

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// WebhookPublisher is the external collaborator a WebhookEventSubscriber
// forwards to, using event_type as the delivery channel.
type WebhookPublisher interface {
	PublishEvent(ctx context.Context, organizationID, eventType string, payload map[string]any) error
}

// WebhookEventSubscriber listens on "*" and forwards every event's
// webhook payload unchanged to the external publisher.
type WebhookEventSubscriber struct {
	publisher WebhookPublisher
}

// NewWebhookEventSubscriber returns a subscriber forwarding to publisher.
func NewWebhookEventSubscriber(publisher WebhookPublisher) *WebhookEventSubscriber {
	return &WebhookEventSubscriber{publisher: publisher}
}

// Register subscribes this handler to the bus on "*".
func (s *WebhookEventSubscriber) Register(bus *Bus) {
	bus.Subscribe("webhook_event_subscriber", "*", s.Handle)
}

// Handle forwards event to the webhook publisher verbatim.
func (s *WebhookEventSubscriber) Handle(ctx context.Context, event domain.DomainEvent) error {
	return s.publisher.PublishEvent(ctx, event.OrganizationID(), event.EventType(), event.ToWebhookPayload())
}
