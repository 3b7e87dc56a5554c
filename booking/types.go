/*
Package booking provides the core slot-reservation engine.

PURPOSE:
  This package contains the domain types and services that guarantee a time
  slot is held by at most one appointment at a time. It has no knowledge of
  HTTP, HTML, CSV, or email delivery - those live at the boundary and talk
  to this package through its services and the Notifier port.

KEY CONCEPTS IN THIS FILE (types.go):
  - Agency: a physical location where appointments take place (referenced,
    never mutated by the core services)
  - Slot: a bookable time window with a maintained Open/Held status
  - Appointment: a booking bound to a slot, with a lifecycle status
  - Token: an unguessable capability string for self-service cancel/reschedule
  - Event: a lifecycle notification pushed to the Notifier port

DESIGN PRINCIPLES:
  1. Exclusivity: Slot.Status is a maintained field, mutated only by the
     ReservationLedger - never recomputed ad hoc
  2. Type Safety: Strong typing for IDs prevents mixing slot/appointment IDs
  3. Capability tokens: possession of a token IS the authorization, there is
     no session or password on the self-service path

SEE ALSO:
  - registry.go: Slot availability and status transitions
  - ledger.go: The one-holder invariant enforcement point
  - lifecycle.go: Appointment state machine
  - token.go: Token issuance and validation
*/
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AgencyID string
type SlotID string
type AppointmentID string

// NewID returns a fresh unique identifier.
func NewID() string { return uuid.NewString() }

// =============================================================================
// AGENCY - Where appointments take place
// =============================================================================

type Agency struct {
	ID          AgencyID
	Name        string
	City        string
	Description string
	CreatedAt   time.Time
}

// =============================================================================
// SLOT - A bookable time window
// =============================================================================

type SlotStatus string

const (
	SlotOpen SlotStatus = "open"
	SlotHeld SlotStatus = "held"
)

type Slot struct {
	ID       SlotID
	AgencyID AgencyID
	Start    time.Time
	End      time.Time
	Status   SlotStatus
}

// =============================================================================
// APPOINTMENT - A booking bound to a slot
// =============================================================================

type AppointmentStatus string

const (
	StatusPendingReview AppointmentStatus = "pending_review"
	StatusConfirmed     AppointmentStatus = "confirmed"
	StatusCancelled     AppointmentStatus = "cancelled"
	StatusRejected      AppointmentStatus = "rejected"
)

// IsTerminal reports whether no further transitions are accepted.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRejected
}

// Owner is the identity and project information collected at booking time.
type Owner struct {
	Name         string
	Surname      string
	Email        string
	Phone        string
	City         string
	PostalCode   string
	ProjectStage string
	Sector       string
	Description  string
	Needs        string
}

type Appointment struct {
	ID        AppointmentID
	SlotID    SlotID
	Owner     Owner
	Status    AppointmentStatus
	CreatedAt time.Time
}

// AppointmentDraft is the caller-supplied part of a new appointment.
type AppointmentDraft struct {
	Owner Owner
}

// AppointmentFilter narrows admin listings. Zero value matches everything.
type AppointmentFilter struct {
	Status   AppointmentStatus
	AgencyID AgencyID
}

// =============================================================================
// TOKEN - Capability for self-service cancel/reschedule
// =============================================================================

// Token binds an unguessable value to one appointment. A superseded token
// stays on file with Active=false so resolution failures are auditable.
type Token struct {
	Value         string
	AppointmentID AppointmentID
	Active        bool
	CreatedAt     time.Time
	RevokedAt     *time.Time
}

// =============================================================================
// LIFECYCLE EVENTS - Pushed to the Notifier port after each transition
// =============================================================================

type EventKind string

const (
	EventCreated     EventKind = "created"
	EventConfirmed   EventKind = "confirmed"
	EventRejected    EventKind = "rejected"
	EventCancelled   EventKind = "cancelled"
	EventRescheduled EventKind = "rescheduled"
)

// Event carries a snapshot of the appointment and its surroundings at the
// moment of the transition. Token is set only for Created/Rescheduled.
type Event struct {
	Kind        EventKind
	Appointment Appointment
	Slot        Slot
	Agency      Agency
	Token       string
	At          time.Time
}

// Notifier is the outbound notification port. Delivery is best-effort:
// the lifecycle logs failures and moves on, state is already committed.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
