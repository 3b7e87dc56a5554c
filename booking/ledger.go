/*
ledger.go - Reservation Ledger: the one-holder invariant enforcement point

PURPOSE:
  Owns the Slot<->Appointment binding. Reserve, Release, and Rebind are the
  only operations that change which appointment holds which slot, and they
  are the only writers of slot status (through the registry mutators).

CONCURRENCY:
  Two concurrent Reserve calls for the same slot must yield exactly one
  success and one ErrSlotUnavailable - never two successes. The ledger
  serializes the check-then-claim sequence with a per-slot mutex, and the
  writes themselves run inside a store transaction so a failure at any step
  rolls back the whole binding. Lock hold time is bounded to the single
  check-and-mutate step; there are no long-lived critical sections.

  Rebind locks the old and new slots in a stable order (by ID) so two
  crossing rebinds cannot deadlock.

SEE ALSO:
  - registry.go: MarkHeld/MarkOpen, called only from here
  - lifecycle.go: Drives Release/Rebind from state transitions
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ReservationLedger enforces "at most one live appointment per slot".
type ReservationLedger struct {
	store TxStore

	mu    sync.Mutex
	locks map[SlotID]*sync.Mutex
}

func NewReservationLedger(store TxStore) *ReservationLedger {
	return &ReservationLedger{
		store: store,
		locks: make(map[SlotID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing claims on one slot.
// Lock entries are never removed; the slot population is small and bounded
// by administrative creation.
func (l *ReservationLedger) lockFor(id SlotID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// =============================================================================
// RESERVE - Atomically claim an Open slot
// =============================================================================

// Reserve verifies the slot exists and is Open, creates a PendingReview
// appointment bound to it, and marks the slot Held - atomically. If the
// slot is not Open, it fails with ErrSlotUnavailable and mutates nothing.
func (l *ReservationLedger) Reserve(ctx context.Context, slotID SlotID, draft AppointmentDraft) (*Appointment, error) {
	lock := l.lockFor(slotID)
	lock.Lock()
	defer lock.Unlock()

	appt := Appointment{
		ID:        AppointmentID(NewID()),
		SlotID:    slotID,
		Owner:     draft.Owner,
		Status:    StatusPendingReview,
		CreatedAt: time.Now().UTC(),
	}

	err := l.store.WithTx(ctx, func(tx Store) error {
		slot, err := tx.GetSlot(ctx, slotID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrSlotUnavailable
			}
			return err
		}
		if slot.Status != SlotOpen {
			return ErrSlotUnavailable
		}
		if err := NewSlotRegistry(tx).MarkHeld(ctx, slotID); err != nil {
			return fmt.Errorf("claim slot %s: %w", slotID, err)
		}
		return tx.SaveAppointment(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// =============================================================================
// RELEASE - Free the slot after cancellation or rejection
// =============================================================================

// Release frees the slot bound to an appointment. The optional update
// callback mutates the appointment inside the same transaction (the
// lifecycle writes the terminal status through it); returning an error from
// the callback aborts the whole release. Idempotent: the slot is only
// reopened while this appointment is still its holder, so a stale second
// release after the slot has been rebooked touches nothing.
func (l *ReservationLedger) Release(ctx context.Context, appointmentID AppointmentID, update func(*Appointment) error) (*Appointment, error) {
	appt, err := l.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("release appointment %s: %w", appointmentID, err)
	}

	lock := l.lockFor(appt.SlotID)
	lock.Lock()
	defer lock.Unlock()

	var released Appointment
	err = l.store.WithTx(ctx, func(tx Store) error {
		// Re-read under the lock: the snapshot taken before locking may
		// have raced another finalizer.
		current, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if update != nil {
			if err := update(current); err != nil {
				return err
			}
			if err := tx.SaveAppointment(ctx, *current); err != nil {
				return err
			}
		}
		released = *current

		slot, err := tx.GetSlot(ctx, current.SlotID)
		if err != nil {
			// Slot deleted after release: nothing left to free.
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if slot.Status == SlotOpen {
			return nil // already released
		}
		// The slot may have been rebooked since this appointment let go of
		// it; only its current holder gets to reopen it.
		holder, err := tx.GetLiveAppointmentBySlot(ctx, current.SlotID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if holder != nil && holder.ID != appointmentID {
			return nil
		}
		return NewSlotRegistry(tx).MarkOpen(ctx, current.SlotID)
	})
	if err != nil {
		return nil, err
	}
	return &released, nil
}

// =============================================================================
// REBIND - Atomic move to a new slot
// =============================================================================

// Rebind releases the appointment's current slot and claims the new one as a
// single atomic step. If the new slot is unavailable the old binding is left
// untouched and ErrSlotUnavailable is returned. The updated appointment is
// NOT persisted here beyond its slot reference - status demotion is the
// lifecycle's job and rides in through the update callback.
func (l *ReservationLedger) Rebind(ctx context.Context, appointmentID AppointmentID, newSlotID SlotID, update func(*Appointment)) (*Appointment, error) {
	appt, err := l.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("rebind appointment %s: %w", appointmentID, err)
	}
	oldSlotID := appt.SlotID
	if oldSlotID == newSlotID {
		return nil, ErrSlotUnavailable
	}

	// Stable lock order prevents deadlock between crossing rebinds.
	first, second := l.lockFor(oldSlotID), l.lockFor(newSlotID)
	if newSlotID < oldSlotID {
		first, second = second, first
	}
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	updated := *appt
	updated.SlotID = newSlotID
	if update != nil {
		update(&updated)
	}

	err = l.store.WithTx(ctx, func(tx Store) error {
		newSlot, err := tx.GetSlot(ctx, newSlotID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrSlotUnavailable
			}
			return err
		}
		if newSlot.Status != SlotOpen {
			return ErrSlotUnavailable
		}

		reg := NewSlotRegistry(tx)
		if err := reg.MarkHeld(ctx, newSlotID); err != nil {
			return fmt.Errorf("claim slot %s: %w", newSlotID, err)
		}
		// The old slot may already be Open if it was deleted and recreated;
		// tolerate only a genuine missing record.
		if err := reg.MarkOpen(ctx, oldSlotID); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("free slot %s: %w", oldSlotID, err)
		}
		return tx.SaveAppointment(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
