package handlers

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/resolver"
	"github.com/airweave-ai/ingestion-core/internal/source"
)

// Embedder turns one entity's embeddable fields into dense (and
// optionally sparse) vectors. The out-of-scope embedding model lives
// behind this interface.
type Embedder interface {
	Embed(ctx context.Context, e source.Entity, requirement domain.ProcessingRequirement) (dense []float32, sparse map[uint32]float32, err error)
}

// DestinationWriter is the thin client for one destination slot (the
// vendor-specific client itself — Qdrant/Vespa — is out of scope).
type DestinationWriter interface {
	SlotID() string
	Role() domain.SyncConnectionRole
	ProcessingRequirement() domain.ProcessingRequirement
	Upsert(ctx context.Context, e source.Entity, dense []float32, sparse map[uint32]float32) error
	Delete(ctx context.Context, id source.Identity) error
}

// DestinationHandler embeds entities and writes to every writable
// destination slot (active + shadow). Shadow writes are best-effort: a
// shadow failure never aborts the batch once the active write succeeded.
type DestinationHandler struct {
	embedder     Embedder
	destinations []DestinationWriter
}

// NewDestinationHandler returns a handler writing to destinations via
// embedder.
func NewDestinationHandler(embedder Embedder, destinations []DestinationWriter) *DestinationHandler {
	return &DestinationHandler{embedder: embedder, destinations: destinations}
}

func (h *DestinationHandler) Name() string { return "destination" }

func (h *DestinationHandler) Tolerant() bool { return false }

func (h *DestinationHandler) Apply(ctx context.Context, actions []resolver.Action) (Result, error) {
	result := Result{Counts: map[resolver.ActionKind]int64{}}

	var active DestinationWriter
	var shadows []DestinationWriter
	for _, d := range h.destinations {
		if d.Role() == domain.SyncConnectionRoleActive {
			active = d
		} else if d.Role() == domain.SyncConnectionRoleShadow {
			shadows = append(shadows, d)
		}
	}

	for _, a := range actions {
		if err := h.applyOne(ctx, a, active, shadows); err != nil {
			result.Errors = append(result.Errors, ActionError{Action: a, Err: err})
			continue
		}
		result.Counts[a.Kind]++
	}

	return result, nil
}

func (h *DestinationHandler) applyOne(ctx context.Context, a resolver.Action, active DestinationWriter, shadows []DestinationWriter) error {
	switch a.Kind {
	case resolver.ActionDelete:
		id := source.Identity{EntityID: a.Fingerprint.EntityID, EntityDefinitionID: a.Fingerprint.EntityDefinitionID}

		if active != nil {
			if err := active.Delete(ctx, id); err != nil {
				return fmt.Errorf("destination: active delete: %w", err)
			}
		}
		for _, s := range shadows {
			_ = s.Delete(ctx, id)
		}
		return nil

	case resolver.ActionKeep:
		return nil

	case resolver.ActionInsert, resolver.ActionUpdate:
		if a.Entity == nil {
			return fmt.Errorf("destination: %s action with no entity", a.Kind)
		}

		if active != nil {
			dense, sparse, err := h.embedder.Embed(ctx, a.Entity, active.ProcessingRequirement())
			if err != nil {
				return fmt.Errorf("destination: embed for active: %w", err)
			}
			if err := active.Upsert(ctx, a.Entity, dense, sparse); err != nil {
				return fmt.Errorf("destination: active upsert: %w", err)
			}
		}

		for _, s := range shadows {
			dense, sparse, err := h.embedder.Embed(ctx, a.Entity, s.ProcessingRequirement())
			if err != nil {
				continue
			}
			_ = s.Upsert(ctx, a.Entity, dense, sparse)
		}

		return nil

	default:
		return fmt.Errorf("destination: unknown action kind %q", a.Kind)
	}
}
