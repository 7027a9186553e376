// Package eventbus is the process-wide fan-out from producers (sync
// orchestrator, organization/collection/source-connection lifecycle) to
// named subscribers (webhook forwarder, billing handler, progress relay,
// notification sidecar).
package eventbus

import (
	"context"
	"sync"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"

	"github.com/iancoleman/strcase"
)

// Handler receives one matched event. Handlers must be reentrant across
// events and must never panic across the bus boundary — Bus recovers any
// panic and logs it, matching the "subscribers swallow their own errors"
// propagation policy.
type Handler func(ctx context.Context, event domain.DomainEvent) error

// Name returns a normalized, log- and metric-safe identifier for a
// subscriber, snake_case regardless of how the registering code spelled
// it.
func Name(raw string) string {
	return strcase.ToSnake(raw)
}

type delivery struct {
	ctx   context.Context
	event domain.DomainEvent
	// barrier, when set, marks a control message used by Drain: the
	// worker closes it instead of invoking the handler.
	barrier chan struct{}
}

// subscription owns a single worker goroutine draining its queue in
// arrival order, so delivery to one subscriber is always serialized and
// never reorders events relative to how the producer published them.
type subscription struct {
	name    string
	matcher matcher
	handler Handler
	queue   chan delivery
	logger  mlog.Logger
}

func newSubscription(name, pattern string, handler Handler, logger mlog.Logger) *subscription {
	s := &subscription{
		name:    Name(name),
		matcher: compileMatcher(pattern),
		handler: handler,
		queue:   make(chan delivery, 1024),
		logger:  logger,
	}
	go s.run()
	return s
}

func (s *subscription) run() {
	for d := range s.queue {
		if d.barrier != nil {
			close(d.barrier)
			continue
		}
		s.deliver(d)
	}
}

func (s *subscription) deliver(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("eventbus: subscriber %q panicked handling %s: %v", s.name, d.event.EventType(), r)
		}
	}()

	if err := s.handler(d.ctx, d.event); err != nil {
		s.logger.Errorf("eventbus: subscriber %q failed handling %s: %v", s.name, d.event.EventType(), err)
	}
}

// Bus is the process-wide event bus. Safe for concurrent Publish and
// Subscribe calls.
type Bus struct {
	logger mlog.Logger

	mu   sync.RWMutex
	subs []*subscription
}

// New returns an empty Bus.
func New(logger mlog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers handler under name for every event whose type
// matches pattern. The pattern is compiled once, here, not re-parsed per
// event. Each subscription gets its own worker goroutine, so one slow or
// failing subscriber never blocks another.
func (b *Bus) Subscribe(name, pattern string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = append(b.subs, newSubscription(name, pattern, handler, b.logger))
}

// Publish enqueues event for delivery to every matching subscriber and
// returns immediately — non-blocking from the producer's viewpoint.
// Handlers run concurrently with respect to other handlers of the same
// event, but a single subscriber processes events strictly in the order
// Publish was called for them (required for event ordering when a single
// producer, like the orchestrator, publishes from one logical stream).
func (b *Bus) Publish(ctx context.Context, event domain.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		if s.matcher.matches(event.EventType()) {
			s.queue <- delivery{ctx: ctx, event: event}
		}
	}
}

// Drain blocks until every subscriber has processed everything enqueued
// so far. Intended for tests and graceful shutdown, never for the
// orchestrator's hot path.
func (b *Bus) Drain() {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			barrier := make(chan struct{})
			s.queue <- delivery{barrier: barrier}
			<-barrier
		}(s)
	}
	wg.Wait()
}
