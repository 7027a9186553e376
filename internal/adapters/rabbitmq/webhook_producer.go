// Package rabbitmq transports webhook deliveries: a producer enqueues a
// signed payload per domain event, and a consumer dequeues, rate-limits,
// and HTTP-delivers to the organization's configured webhook endpoint.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/platform/mrabbitmq"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
)

// WebhookProducer is the rabbitmq-backed eventbus.WebhookPublisher.
type WebhookProducer struct {
	connection *mrabbitmq.Connection
	signer     *Signer
	exchange   string
}

// NewWebhookProducer returns a producer backed by conn, signing every
// payload with signer.
func NewWebhookProducer(conn *mrabbitmq.Connection, signer *Signer) *WebhookProducer {
	return &WebhookProducer{connection: conn, signer: signer, exchange: conn.Exchange}
}

type webhookMessage struct {
	OrganizationID string         `json:"organization_id"`
	EventType      string         `json:"event_type"`
	Payload        map[string]any `json:"payload"`
}

// PublishEvent satisfies eventbus.WebhookPublisher: it marshals, signs,
// and enqueues one message per event, routed on event type.
func (p *WebhookProducer) PublishEvent(ctx context.Context, organizationID, eventType string, payload map[string]any) error {
	logger := tracking.NewLoggerFromContext(ctx)
	tracer := tracking.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "rabbitmq.webhook_producer.publish_event")
	defer span.End()

	span.SetAttributes(
		attribute.String("app.webhook.organization_id", organizationID),
		attribute.String("app.webhook.event_type", eventType),
	)

	channel, err := p.connection.GetChannel(ctx)
	if err != nil {
		return fmt.Errorf("webhook producer: get channel: %w", err)
	}

	body, err := json.Marshal(webhookMessage{OrganizationID: organizationID, EventType: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("webhook producer: marshal message: %w", err)
	}

	timestamp, signatureHeader := p.signer.Sign(body)

	err = channel.PublishWithContext(ctx, p.exchange, eventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Unix(timestamp, 0),
		Headers: amqp.Table{
			"X-Webhook-Signature": signatureHeader,
		},
		Body: body,
	})
	if err != nil {
		logger.Errorf("webhook producer: publish %s for org %s: %v", eventType, organizationID, err)
		return fmt.Errorf("webhook producer: publish: %w", err)
	}

	return nil
}
