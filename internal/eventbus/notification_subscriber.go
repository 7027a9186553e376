package eventbus

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
)

// NotificationSubscriber is a minimal lifecycle-logging subscriber,
// demonstrating the bus's fan-out beyond the three spec-mandated
// subscribers. It listens only for organization.created and logs the
// signup; a production analytics sink would replace the log call.
type NotificationSubscriber struct {
	logger mlog.Logger
}

// NewNotificationSubscriber returns a subscriber logging via logger.
func NewNotificationSubscriber(logger mlog.Logger) *NotificationSubscriber {
	return &NotificationSubscriber{logger: logger}
}

// Register subscribes this subscriber to organization.created only.
func (s *NotificationSubscriber) Register(bus *Bus) {
	bus.Subscribe("notification_subscriber", domain.EventOrganizationCreated, s.Handle)
}

// Handle logs the organization signup. Best-effort: any downstream
// failure here is swallowed by the bus's recover/log wrapper, never
// propagated.
func (s *NotificationSubscriber) Handle(_ context.Context, event domain.DomainEvent) error {
	org, ok := event.(domain.OrganizationEvent)
	if !ok {
		return nil
	}

	s.logger.Infof("organization signup: id=%s name=%s owner=%s plan=%s",
		org.OrganizationID(), org.OrganizationName, org.OwnerEmail, org.Plan)

	return nil
}
