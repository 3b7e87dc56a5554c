/*
token.go - Token Authority: capability tokens for self-service actions

PURPOSE:
  Issues and validates the unguessable tokens delivered in booking emails.
  Possession of a token is the entire authorization for cancel/reschedule -
  there is no account, session, or password on that path.

ENTROPY:
  Tokens are 128 bits from crypto/rand, hex encoded (32 characters).
  That is enough to make online guessing hopeless; the value is compared
  by exact lookup, never parsed.

LIFECYCLE:
  - Issue() once at creation, again on every reschedule
  - Issuing supersedes the previous token (exactly one active per appointment)
  - Revoke() when the appointment reaches a terminal status

SEE ALSO:
  - lifecycle.go: Calls Issue/Resolve/Revoke around transitions
*/
package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const tokenBytes = 16 // 128 bits of randomness

// TokenAuthority owns token issuance, validation, and revocation.
type TokenAuthority struct {
	store Store
}

func NewTokenAuthority(store Store) *TokenAuthority {
	return &TokenAuthority{store: store}
}

// Issue mints a fresh token bound to the appointment, superseding any
// previously active token for it.
func (a *TokenAuthority) Issue(ctx context.Context, id AppointmentID) (*Token, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := time.Now().UTC()
	if err := a.store.RevokeActiveToken(ctx, id, now); err != nil {
		return nil, fmt.Errorf("supersede token for %s: %w", id, err)
	}

	token := Token{
		Value:         hex.EncodeToString(buf),
		AppointmentID: id,
		Active:        true,
		CreatedAt:     now,
	}
	if err := a.store.SaveToken(ctx, token); err != nil {
		return nil, fmt.Errorf("issue token for %s: %w", id, err)
	}
	return &token, nil
}

// Resolve returns the appointment bound to an active token, or ErrInvalidToken.
// Unknown, superseded, and malformed values are deliberately indistinguishable.
func (a *TokenAuthority) Resolve(ctx context.Context, value string) (*Appointment, error) {
	if len(value) != tokenBytes*2 {
		return nil, ErrInvalidToken
	}
	if _, err := hex.DecodeString(value); err != nil {
		return nil, ErrInvalidToken
	}

	token, err := a.store.GetActiveToken(ctx, value)
	if err != nil {
		return nil, err
	}
	appt, err := a.store.GetAppointment(ctx, token.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return appt, nil
}

// Revoke invalidates the current token for an appointment. Called when the
// appointment is finalized and no further self-service action is possible.
func (a *TokenAuthority) Revoke(ctx context.Context, id AppointmentID) error {
	return a.store.RevokeActiveToken(ctx, id, time.Now().UTC())
}
