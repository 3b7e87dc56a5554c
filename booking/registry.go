/*
registry.go - Slot Registry: availability queries and status transitions

PURPOSE:
  Owns the set of bookable time windows per agency. Read paths are public;
  the status mutators exist for the ReservationLedger alone, which calls
  them under its exclusivity guarantee.

INVARIANT:
  A slot is Held iff exactly one live (non-terminal) appointment references
  it. The registry does not verify that itself - it only guards against
  redundant transitions (Open->Open, Held->Held), which would indicate a
  ledger bug.

SEE ALSO:
  - ledger.go: The only caller of MarkHeld/MarkOpen
  - store.go: UpdateSlotStatus contract
*/
package booking

import (
	"context"
	"fmt"
	"time"
)

// SlotRegistry exposes slot availability and administers slot records.
type SlotRegistry struct {
	store Store
}

func NewSlotRegistry(store Store) *SlotRegistry {
	return &SlotRegistry{store: store}
}

// =============================================================================
// QUERIES
// =============================================================================

// ListAvailable returns Open slots for an agency, sorted by start time.
func (r *SlotRegistry) ListAvailable(ctx context.Context, agencyID AgencyID) ([]Slot, error) {
	slots, err := r.store.ListSlots(ctx, agencyID, true)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// Get returns the slot or ErrNotFound.
func (r *SlotRegistry) Get(ctx context.Context, id SlotID) (*Slot, error) {
	slot, err := r.store.GetSlot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", id, err)
	}
	return slot, nil
}

// =============================================================================
// ADMINISTRATIVE CREATION / DELETION
// =============================================================================

// Create validates and persists a new Open slot.
func (r *SlotRegistry) Create(ctx context.Context, agencyID AgencyID, start, end time.Time) (*Slot, error) {
	if !end.After(start) {
		return nil, ErrInvalidSlotRange
	}
	if _, err := r.store.GetAgency(ctx, agencyID); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	slot := Slot{
		ID:       SlotID(NewID()),
		AgencyID: agencyID,
		Start:    start.UTC(),
		End:      end.UTC(),
		Status:   SlotOpen,
	}
	if err := r.store.SaveSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return &slot, nil
}

// CreateRange subdivides [start, end) into windows of the given size and
// creates one Open slot per full window. A trailing remainder shorter than
// the window is ignored. Returns the slots created, in start order.
func (r *SlotRegistry) CreateRange(ctx context.Context, agencyID AgencyID, start, end time.Time, window time.Duration) ([]Slot, error) {
	if !end.After(start) {
		return nil, ErrInvalidSlotRange
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: non-positive window", ErrInvalidSlotRange)
	}
	var created []Slot
	for cur := start; !cur.Add(window).After(end); cur = cur.Add(window) {
		slot, err := r.Create(ctx, agencyID, cur, cur.Add(window))
		if err != nil {
			return created, err
		}
		created = append(created, *slot)
	}
	return created, nil
}

// Delete removes a slot. Fails with ErrSlotInUse while the slot is Held.
func (r *SlotRegistry) Delete(ctx context.Context, id SlotID) error {
	slot, err := r.store.GetSlot(ctx, id)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", id, err)
	}
	if slot.Status == SlotHeld {
		return ErrSlotInUse
	}
	return r.store.DeleteSlot(ctx, id)
}

// =============================================================================
// STATUS MUTATORS - Ledger-only
// =============================================================================

// MarkHeld transitions a slot Open->Held. ErrInvalidTransition if already Held.
// Callers outside the ReservationLedger have no business calling this.
func (r *SlotRegistry) MarkHeld(ctx context.Context, id SlotID) error {
	return r.store.UpdateSlotStatus(ctx, id, SlotOpen, SlotHeld)
}

// MarkOpen transitions a slot Held->Open. ErrInvalidTransition if already Open.
func (r *SlotRegistry) MarkOpen(ctx context.Context, id SlotID) error {
	return r.store.UpdateSlotStatus(ctx, id, SlotHeld, SlotOpen)
}
