// Package dispatcher applies a resolver.ActionBatch by routing its
// actions, grouped and ordered, to the registered handlers.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/handlers"
	"github.com/airweave-ai/ingestion-core/internal/resolver"
)

// kindOrder is the fixed dispatch order for an individual batch: within a
// kind, the order produced by the resolver is preserved.
var kindOrder = []resolver.ActionKind{
	resolver.ActionDelete,
	resolver.ActionUpdate,
	resolver.ActionInsert,
	resolver.ActionKeep,
}

// Dispatcher routes an ActionBatch to its registered handlers in a fixed
// order, honoring per-batch handler filtering.
type Dispatcher struct {
	// handlers is ordered: DestinationHandler must precede
	// EntityPostgresHandler so record state only advances when the
	// destination accepted the write.
	handlers []handlers.Handler
}

// New returns a Dispatcher applying handlerChain in the given order.
func New(handlerChain ...handlers.Handler) *Dispatcher {
	return &Dispatcher{handlers: handlerChain}
}

// BatchResult aggregates every handler's Result for one dispatched batch.
type BatchResult struct {
	ByHandler map[string]handlers.Result
}

// Dispatch applies batch to every non-filtered handler, kind group by
// kind group, in the fixed Delete -> Update -> Insert -> Keep order.
// A non-tolerant handler error (DestinationHandler) aborts the remainder
// of the batch and is returned to the caller; a tolerant handler error
// (ArfHandler) is recorded in the result and dispatch continues.
func (d *Dispatcher) Dispatch(ctx context.Context, batch resolver.ActionBatch) (BatchResult, error) {
	result := BatchResult{ByHandler: map[string]handlers.Result{}}

	grouped := groupByKind(batch.Actions)

	for _, kind := range kindOrder {
		actions := grouped[kind]
		if len(actions) == 0 {
			continue
		}

		if err := d.dispatchGroup(ctx, actions, batch.SkipContentHandlers, &result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (d *Dispatcher) dispatchGroup(ctx context.Context, actions []resolver.Action, skip map[string]bool, result *BatchResult) error {
	// survivors narrows for the next handler in the chain (EntityPostgres
	// must see only actions the destination handler actually applied).
	survivors := actions

	for _, h := range d.handlers {
		if skip[h.Name()] {
			continue
		}

		res, err := h.Apply(ctx, survivors)
		if err != nil {
			if h.Tolerant() {
				mergeResult(result, h.Name(), res)
				continue
			}
			return fmt.Errorf("dispatcher: handler %q failed: %w", h.Name(), err)
		}

		mergeResult(result, h.Name(), res)
		survivors = withoutFailed(survivors, res.Errors)
	}

	return nil
}

func mergeResult(result *BatchResult, name string, res handlers.Result) {
	existing, ok := result.ByHandler[name]
	if !ok {
		result.ByHandler[name] = res
		return
	}

	if existing.Counts == nil {
		existing.Counts = map[resolver.ActionKind]int64{}
	}
	for k, v := range res.Counts {
		existing.Counts[k] += v
	}
	existing.Errors = append(existing.Errors, res.Errors...)
	result.ByHandler[name] = existing
}

func withoutFailed(actions []resolver.Action, errs []handlers.ActionError) []resolver.Action {
	if len(errs) == 0 {
		return actions
	}

	failed := make(map[resolver.Action]bool, len(errs))
	for _, e := range errs {
		failed[e.Action] = true
	}

	out := make([]resolver.Action, 0, len(actions))
	for _, a := range actions {
		if !failed[a] {
			out = append(out, a)
		}
	}

	return out
}

func groupByKind(actions []resolver.Action) map[resolver.ActionKind][]resolver.Action {
	grouped := make(map[resolver.ActionKind][]resolver.Action, len(kindOrder))
	for _, a := range actions {
		grouped[a.Kind] = append(grouped[a.Kind], a)
	}
	return grouped
}
