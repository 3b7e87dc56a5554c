/*
lifecycle.go - Appointment Lifecycle: the state machine driving appointments

PURPOSE:
  Coordinates the ledger, the token authority, and the notification port
  around every appointment transition. This is the only place appointment
  status changes.

STATE MACHINE:
  PendingReview --(admin accepts)------> Confirmed
  PendingReview --(admin rejects)------> Rejected   [terminal, slot released]
  PendingReview --(owner cancels)------> Cancelled  [terminal, slot released]
  PendingReview --(owner reschedules)--> PendingReview, new slot, new token
  Confirmed     --(owner cancels)------> Cancelled  [terminal, slot released]
  Confirmed     --(owner reschedules)--> PendingReview, new slot, new token
  Confirmed     --(admin rejects)------> Rejected   [terminal, slot released]

  Cancelled and Rejected are terminal: every further attempt fails with
  ErrAlreadyFinalized, mutating nothing. Reaching a terminal status also
  revokes the outstanding token so a stale emailed link dies immediately;
  ErrAlreadyFinalized remains the safety net if a link races the revocation.

NOTIFICATIONS:
  Every committed transition emits exactly one event. Emission is
  best-effort: failures are logged and never surface to the caller, the
  state change has already committed.

SEE ALSO:
  - ledger.go: Reserve/Release/Rebind
  - token.go: Issue/Resolve/Revoke
  - notify/: Notifier implementations
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/osengo/booking-engine/logging"
)

// Lifecycle drives appointments through their state machine.
type Lifecycle struct {
	ledger   *ReservationLedger
	tokens   *TokenAuthority
	registry *SlotRegistry
	store    Store
	notifier Notifier
	logger   *logging.Logger
}

func NewLifecycle(store TxStore, notifier Notifier, logger *logging.Logger) *Lifecycle {
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{
		ledger:   NewReservationLedger(store),
		tokens:   NewTokenAuthority(store),
		registry: NewSlotRegistry(store),
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Registry exposes the slot registry sharing this lifecycle's store.
func (lc *Lifecycle) Registry() *SlotRegistry { return lc.registry }

// =============================================================================
// BOOKING - reserve + token + Created event
// =============================================================================

// Book reserves the slot, issues the capability token, and emits Created.
// On ErrSlotUnavailable nothing has been mutated and the caller should
// re-fetch availability.
func (lc *Lifecycle) Book(ctx context.Context, slotID SlotID, draft AppointmentDraft) (*Appointment, string, error) {
	appt, err := lc.ledger.Reserve(ctx, slotID, draft)
	if err != nil {
		return nil, "", err
	}

	token, err := lc.tokens.Issue(ctx, appt.ID)
	if err != nil {
		// The slot is claimed but the owner has no token; void the
		// appointment and free the slot rather than strand either.
		if _, relErr := lc.ledger.Release(ctx, appt.ID, func(a *Appointment) error {
			a.Status = StatusCancelled
			return nil
		}); relErr != nil {
			lc.logger.Error("failed to release slot after token failure",
				"appointment", appt.ID, "error", relErr)
		}
		return nil, "", fmt.Errorf("book slot %s: %w", slotID, err)
	}

	lc.emit(ctx, EventCreated, *appt, token.Value)
	return appt, token.Value, nil
}

// View resolves a token to its appointment and surroundings, with no side
// effects. The self-service pages render from this.
func (lc *Lifecycle) View(ctx context.Context, tokenValue string) (*Appointment, *Slot, *Agency, error) {
	appt, err := lc.tokens.Resolve(ctx, tokenValue)
	if err != nil {
		return nil, nil, nil, err
	}
	slot, err := lc.store.GetSlot(ctx, appt.SlotID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("view appointment %s: %w", appt.ID, err)
	}
	agency, err := lc.store.GetAgency(ctx, slot.AgencyID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("view appointment %s: %w", appt.ID, err)
	}
	return appt, slot, agency, nil
}

// =============================================================================
// ADMIN TRANSITIONS
// =============================================================================

// Accept confirms a pending appointment.
func (lc *Lifecycle) Accept(ctx context.Context, id AppointmentID) (*Appointment, error) {
	appt, err := lc.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("accept appointment %s: %w", id, err)
	}
	if appt.Status.IsTerminal() {
		return nil, ErrAlreadyFinalized
	}
	if appt.Status != StatusPendingReview {
		return nil, fmt.Errorf("%w: accept from %s", ErrInvalidTransition, appt.Status)
	}

	appt.Status = StatusConfirmed
	if err := lc.store.SaveAppointment(ctx, *appt); err != nil {
		return nil, fmt.Errorf("accept appointment %s: %w", id, err)
	}

	lc.emit(ctx, EventConfirmed, *appt, "")
	return appt, nil
}

// Reject finalizes an appointment as Rejected, releases its slot, and
// revokes the outstanding token. Valid from PendingReview and Confirmed.
func (lc *Lifecycle) Reject(ctx context.Context, id AppointmentID) (*Appointment, error) {
	appt, err := lc.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reject appointment %s: %w", id, err)
	}
	if appt.Status.IsTerminal() {
		return nil, ErrAlreadyFinalized
	}

	// The status write and the slot release commit together; a racing
	// finalizer is caught by the in-transaction terminal check.
	appt, err = lc.ledger.Release(ctx, id, func(a *Appointment) error {
		if a.Status.IsTerminal() {
			return ErrAlreadyFinalized
		}
		a.Status = StatusRejected
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			return nil, ErrAlreadyFinalized
		}
		return nil, fmt.Errorf("reject appointment %s: %w", id, err)
	}
	if err := lc.tokens.Revoke(ctx, id); err != nil {
		lc.logger.Error("failed to revoke token on rejection", "appointment", id, "error", err)
	}

	lc.emit(ctx, EventRejected, *appt, "")
	return appt, nil
}

// =============================================================================
// OWNER TRANSITIONS - authorized by token possession
// =============================================================================

// Cancel finalizes the token's appointment as Cancelled and frees its slot.
func (lc *Lifecycle) Cancel(ctx context.Context, tokenValue string) (*Appointment, error) {
	appt, err := lc.tokens.Resolve(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsTerminal() {
		return nil, ErrAlreadyFinalized
	}

	appt, err = lc.ledger.Release(ctx, appt.ID, func(a *Appointment) error {
		if a.Status.IsTerminal() {
			return ErrAlreadyFinalized
		}
		a.Status = StatusCancelled
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			return nil, ErrAlreadyFinalized
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	if err := lc.tokens.Revoke(ctx, appt.ID); err != nil {
		lc.logger.Error("failed to revoke token on cancellation", "appointment", appt.ID, "error", err)
	}

	lc.emit(ctx, EventCancelled, *appt, "")
	return appt, nil
}

// Reschedule moves the token's appointment to a new slot. The appointment
// always comes back as PendingReview - the slot changed, so the advisor
// must re-confirm - and the old token is superseded by a fresh one.
func (lc *Lifecycle) Reschedule(ctx context.Context, tokenValue string, newSlotID SlotID) (*Appointment, string, error) {
	appt, err := lc.tokens.Resolve(ctx, tokenValue)
	if err != nil {
		return nil, "", err
	}
	if appt.Status.IsTerminal() {
		return nil, "", ErrAlreadyFinalized
	}

	updated, err := lc.ledger.Rebind(ctx, appt.ID, newSlotID, func(a *Appointment) {
		a.Status = StatusPendingReview
	})
	if err != nil {
		return nil, "", err
	}

	token, err := lc.tokens.Issue(ctx, updated.ID)
	if err != nil {
		return nil, "", fmt.Errorf("reschedule appointment %s: %w", appt.ID, err)
	}

	lc.emit(ctx, EventRescheduled, *updated, token.Value)
	return updated, token.Value, nil
}

// =============================================================================
// EVENT EMISSION - fire-and-forget
// =============================================================================

func (lc *Lifecycle) emit(ctx context.Context, kind EventKind, appt Appointment, token string) {
	if lc.notifier == nil {
		return
	}

	event := Event{
		Kind:        kind,
		Appointment: appt,
		Token:       token,
		At:          time.Now().UTC(),
	}
	if slot, err := lc.store.GetSlot(ctx, appt.SlotID); err == nil {
		event.Slot = *slot
		if agency, err := lc.store.GetAgency(ctx, slot.AgencyID); err == nil {
			event.Agency = *agency
		}
	}

	if err := lc.notifier.Notify(ctx, event); err != nil {
		lc.logger.Error("notification failed", "kind", kind, "appointment", appt.ID, "error", err)
		return
	}
	lc.logger.Info("notification sent", "kind", kind, "appointment", appt.ID)
}
