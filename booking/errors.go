/*
errors.go - Centralized error types for the booking engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The boundary (api package) maps these to HTTP statuses; nothing here
  is fatal to the process.

ERROR CATEGORIES:
  1. Lookup errors    - unknown slot/appointment/agency/token
  2. Exclusivity      - slot races and held-slot conflicts
  3. State machine    - invalid or post-terminal transitions

USAGE:
  Callers match with errors.Is():

    if errors.Is(err, booking.ErrSlotUnavailable) {
        // re-fetch availability, pick another slot
    }

SEE ALSO:
  - ledger.go: Returns ErrSlotUnavailable when a race is lost
  - lifecycle.go: Returns ErrAlreadyFinalized on terminal appointments
  - api/handlers.go: Maps these to HTTP statuses
*/
package booking

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced slot, appointment, or agency
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlotUnavailable is returned when a reserve/rebind targets a slot that
	// is not Open - already held, concurrently claimed, or deleted. The caller
	// is expected to re-fetch availability and retry with a different slot.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidTransition is returned by the registry when a slot is already
	// in the target status. The ledger never calls the mutators redundantly,
	// so seeing this error indicates a bug, not a user mistake.
	ErrInvalidTransition = errors.New("invalid slot transition")

	// ErrAlreadyFinalized is returned when a transition is attempted on an
	// appointment in a terminal status (Cancelled or Rejected).
	ErrAlreadyFinalized = errors.New("appointment already finalized")

	// ErrInvalidToken is returned when a token is unknown, superseded, or
	// malformed. Deliberately indistinguishable cases: a guessing client
	// learns nothing from the error.
	ErrInvalidToken = errors.New("invalid token")

	// ErrSlotInUse is returned when an admin tries to delete a held slot.
	ErrSlotInUse = errors.New("slot in use")

	// ErrInvalidSlotRange is returned when a slot is created with End <= Start.
	ErrInvalidSlotRange = errors.New("invalid slot range: end before start")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is a state conflict the caller can
// recover from by retrying differently (another slot, fresh listing).
func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotUnavailable) ||
		errors.Is(err, ErrSlotInUse) ||
		errors.Is(err, ErrAlreadyFinalized) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrInvalidSlotRange) ||
		IsConflict(err)
}
