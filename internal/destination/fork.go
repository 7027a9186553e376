package destination

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// JobRunner is the subset of the orchestrator fork.go needs: running one
// sync job to completion against a given source factory and destination
// slot filter, without fork.go depending on the orchestrator package
// directly (orchestrator already depends on destination for the replay
// source).
type JobRunner interface {
	RunReplayJob(ctx context.Context, syncID, newSlotID string) (domain.JobStatus, error)
}

// Fork creates newSlotID as a shadow slot, runs a sync job sourced
// entirely from ARF replay against it, and — only if that job completes
// successfully — promotes newSlotID to active and demotes the prior
// active slot to deprecated, atomically via Promote. This is the single
// operation described for migrating to a new destination without
// recontacting the original source.
func Fork(ctx context.Context, store SlotStore, runner JobRunner, syncID, newSlotID string) error {
	if err := store.SetRole(syncID, newSlotID, domain.SyncConnectionRoleShadow); err != nil {
		return fmt.Errorf("destination: fork: create shadow slot: %w", err)
	}

	status, err := runner.RunReplayJob(ctx, syncID, newSlotID)
	if err != nil {
		return fmt.Errorf("destination: fork: replay job: %w", err)
	}

	if status != domain.JobStatusCompleted {
		return fmt.Errorf("destination: fork: replay job ended in status %s, not promoting", status)
	}

	if err := Promote(store, syncID, newSlotID); err != nil {
		return fmt.Errorf("destination: fork: promote: %w", err)
	}

	return nil
}
