/*
store.go - Persistence interface for the booking engine

PURPOSE:
  Defines the interface between the domain services and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Record persistence for agencies, slots, appointments, tokens
  TxStore: Transactional operations (atomic multi-record writes)

ATOMIC OPERATIONS:
  WithTx() ensures all-or-nothing semantics. Reserving a slot writes the
  appointment, flips the slot status, and records the token binding; either
  all three land or none do. This is what keeps the ledger free of
  half-applied bindings.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - booking/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Runs its check-then-claim sequence inside WithTx
  - store/sqlite/sqlite.go: Concrete implementation
*/
package booking

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Record persistence
// =============================================================================

// Store handles persistence of booking records. Methods that look up a
// single record return ErrNotFound (possibly wrapped) when it is missing.
type Store interface {
	// Agencies
	SaveAgency(ctx context.Context, a Agency) error
	GetAgency(ctx context.Context, id AgencyID) (*Agency, error)
	ListAgencies(ctx context.Context) ([]Agency, error)
	DeleteAgency(ctx context.Context, id AgencyID) error

	// Slots
	SaveSlot(ctx context.Context, s Slot) error
	GetSlot(ctx context.Context, id SlotID) (*Slot, error)
	// ListSlots returns slots for an agency ordered by start time.
	// With onlyOpen, held slots are filtered out.
	ListSlots(ctx context.Context, agencyID AgencyID, onlyOpen bool) ([]Slot, error)
	// UpdateSlotStatus flips a slot between Open and Held. Implementations
	// must apply the update only if the slot currently has status `from`,
	// returning ErrInvalidTransition otherwise.
	UpdateSlotStatus(ctx context.Context, id SlotID, from, to SlotStatus) error
	DeleteSlot(ctx context.Context, id SlotID) error

	// Appointments
	SaveAppointment(ctx context.Context, a Appointment) error
	GetAppointment(ctx context.Context, id AppointmentID) (*Appointment, error)
	// ListAppointments returns appointments matching the filter ordered by
	// creation time ascending - the stable enumeration order for exports.
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
	// GetLiveAppointmentBySlot returns the non-terminal appointment bound
	// to a slot, or ErrNotFound. The ledger uses it to verify the current
	// holder before reopening a slot; it must be usable inside WithTx.
	GetLiveAppointmentBySlot(ctx context.Context, slotID SlotID) (*Appointment, error)

	// Tokens
	SaveToken(ctx context.Context, t Token) error
	// GetActiveToken returns the active token bound to a value, or ErrInvalidToken.
	GetActiveToken(ctx context.Context, value string) (*Token, error)
	// RevokeActiveToken deactivates the current token for an appointment.
	// A no-op when no active token exists.
	RevokeActiveToken(ctx context.Context, id AppointmentID, at time.Time) error
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic multi-record operations
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, all writes made through the passed Store are
	// rolled back; if fn returns nil, they are committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
