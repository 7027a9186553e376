// Package tracker implements the in-memory per-job EntityTracker: counters
// for inserted/updated/deleted/kept/skipped by entity type, driving
// entity.* events and the final job stats record.
package tracker

import (
	"sync"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// EntityTracker accumulates per-type counters for one running SyncJob.
// Safe for concurrent use since pipelined batches may update it from
// overlapping goroutines.
type EntityTracker struct {
	mu       sync.Mutex
	inserted map[string]int64
	updated  map[string]int64
	deleted  map[string]int64
	kept     map[string]int64
	skipped  map[string]int64
}

// New returns an empty EntityTracker.
func New() *EntityTracker {
	return &EntityTracker{
		inserted: map[string]int64{},
		updated:  map[string]int64{},
		deleted:  map[string]int64{},
		kept:     map[string]int64{},
		skipped:  map[string]int64{},
	}
}

func (t *EntityTracker) bump(m map[string]int64, entityType string, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m[entityType] += n
}

// Inserted records n newly inserted entities of entityType.
func (t *EntityTracker) Inserted(entityType string, n int64) { t.bump(t.inserted, entityType, n) }

// Updated records n updated entities of entityType.
func (t *EntityTracker) Updated(entityType string, n int64) { t.bump(t.updated, entityType, n) }

// Deleted records n deleted entities of entityType.
func (t *EntityTracker) Deleted(entityType string, n int64) { t.bump(t.deleted, entityType, n) }

// Kept records n unchanged entities of entityType.
func (t *EntityTracker) Kept(entityType string, n int64) { t.bump(t.kept, entityType, n) }

// Skipped records n entities of entityType dropped by per-batch handler
// filtering.
func (t *EntityTracker) Skipped(entityType string, n int64) { t.bump(t.skipped, entityType, n) }

func cloneCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Stats snapshots the tracker's current counters into JobStats.
func (t *EntityTracker) Stats() domain.JobStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return domain.JobStats{
		Inserted: cloneCounts(t.inserted),
		Updated:  cloneCounts(t.updated),
		Deleted:  cloneCounts(t.deleted),
		Kept:     cloneCounts(t.kept),
		Skipped:  cloneCounts(t.skipped),
	}
}

// Total sums every counter across all types, used for the batch-level
// entity.batch_processed event fields.
func (t *EntityTracker) Total() (inserted, updated, deleted, kept, skipped int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sum := func(m map[string]int64) int64 {
		var total int64
		for _, v := range m {
			total += v
		}
		return total
	}

	return sum(t.inserted), sum(t.updated), sum(t.deleted), sum(t.kept), sum(t.skipped)
}
