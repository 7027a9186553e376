// Package destination implements multi-destination fan-out bookkeeping:
// slot promotion/demotion and the ARF-backed replay pseudo-source used to
// fork a new destination without recontacting the original source.
package destination

import (
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// SlotStore persists a Sync's destination slot roles.
type SlotStore interface {
	Slots(syncID string) ([]domain.SyncConnection, error)
	SetRole(syncID, slotID string, role domain.SyncConnectionRole) error
}

// ErrMultipleActiveSlots is returned when a promotion would violate the
// single-active-slot invariant.
type ErrMultipleActiveSlots struct {
	SyncID string
}

func (e ErrMultipleActiveSlots) Error() string {
	return fmt.Sprintf("destination: sync %s already has an active slot", e.SyncID)
}

// Promote atomically sets slotID to active and demotes any existing
// active slot to deprecated, preserving the invariant that at most one
// destination slot per sync has role=active (invariant 10).
func Promote(store SlotStore, syncID, slotID string) error {
	slots, err := store.Slots(syncID)
	if err != nil {
		return fmt.Errorf("destination: load slots: %w", err)
	}

	for _, s := range slots {
		if s.Role == domain.SyncConnectionRoleActive && s.ID != slotID {
			if err := store.SetRole(syncID, s.ID, domain.SyncConnectionRoleDeprecated); err != nil {
				return fmt.Errorf("destination: demote prior active slot %s: %w", s.ID, err)
			}
		}
	}

	return store.SetRole(syncID, slotID, domain.SyncConnectionRoleActive)
}

// ValidateSingleActive re-checks the invariant against the store's
// current view, for tests and health checks.
func ValidateSingleActive(store SlotStore, syncID string) error {
	slots, err := store.Slots(syncID)
	if err != nil {
		return fmt.Errorf("destination: load slots: %w", err)
	}

	count := 0
	for _, s := range slots {
		if s.Role == domain.SyncConnectionRoleActive {
			count++
		}
	}

	if count > 1 {
		return ErrMultipleActiveSlots{SyncID: syncID}
	}

	return nil
}
