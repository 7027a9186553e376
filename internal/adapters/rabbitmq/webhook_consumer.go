package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/platform/mrabbitmq"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// EndpointResolver looks up the HTTP endpoint an organization has
// configured to receive webhook deliveries.
type EndpointResolver interface {
	URLFor(ctx context.Context, organizationID string) (string, error)
}

// WebhookConsumer dequeues signed webhook messages and delivers them over
// HTTP, smoothing bursts with a token bucket and tripping a circuit
// breaker on a failing endpoint so one bad customer target can't starve
// delivery workers for everyone else.
type WebhookConsumer struct {
	connection *mrabbitmq.Connection
	endpoints  EndpointResolver
	client     *http.Client
	limiter    *rate.Limiter
	breakersMu sync.Mutex
	breakers   map[string]*gobreaker.CircuitBreaker
	queue      string
}

// NewWebhookConsumer returns a consumer dequeuing queue, delivering at
// most ratePerSecond requests/sec in steady state.
func NewWebhookConsumer(conn *mrabbitmq.Connection, endpoints EndpointResolver, queue string, ratePerSecond float64) *WebhookConsumer {
	return &WebhookConsumer{
		connection: conn,
		endpoints:  endpoints,
		client:     &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		breakers:   map[string]*gobreaker.CircuitBreaker{},
		queue:      queue,
	}
}

// Run consumes deliveries until ctx is cancelled. Each message is
// processed inline on the consuming goroutine; a production deployment
// runs several Run calls concurrently to scale delivery throughput.
func (c *WebhookConsumer) Run(ctx context.Context) error {
	channel, err := c.connection.GetChannel(ctx)
	if err != nil {
		return fmt.Errorf("webhook consumer: get channel: %w", err)
	}

	deliveries, err := channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("webhook consumer: register consumer: %w", err)
	}

	logger := tracking.NewLoggerFromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			if err := c.handle(ctx, delivery); err != nil {
				logger.Errorf("webhook consumer: deliver: %v", err)
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (c *WebhookConsumer) handle(ctx context.Context, delivery amqp.Delivery) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "rabbitmq.webhook_consumer.handle")
	defer span.End()

	var msg webhookMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		return fmt.Errorf("unmarshal delivery: %w", err)
	}

	url, err := c.endpoints.URLFor(ctx, msg.OrganizationID)
	if err != nil {
		return fmt.Errorf("resolve endpoint for org %s: %w", msg.OrganizationID, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	breaker := c.breakerFor(msg.OrganizationID)
	signatureHeader, _ := delivery.Headers["X-Webhook-Signature"].(string)

	_, err = breaker.Execute(func() (any, error) {
		return nil, c.deliver(ctx, url, delivery.Body, signatureHeader)
	})

	return err
}

func (c *WebhookConsumer) deliver(ctx context.Context, url string, body []byte, signatureHeader string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signatureHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned HTTP %d", resp.StatusCode)
	}

	return nil
}

func (c *WebhookConsumer) breakerFor(organizationID string) *gobreaker.CircuitBreaker {
	c.breakersMu.Lock()
	defer c.breakersMu.Unlock()

	if b, ok := c.breakers[organizationID]; ok {
		return b
	}

	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "webhook:" + organizationID,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	c.breakers[organizationID] = b

	return b
}
