package booking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osengo/booking-engine/booking"
)

// =============================================================================
// ISSUE / RESOLVE TESTS
// =============================================================================

func TestToken_IssueAndResolve_Roundtrip(t *testing.T) {
	// GIVEN: An appointment with an issued token
	// WHEN: Resolving the token value
	// THEN: The bound appointment comes back

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	tokens := booking.NewTokenAuthority(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	appt, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)

	token, err := tokens.Issue(ctx, appt.ID)
	require.NoError(t, err)
	assert.Len(t, token.Value, 32, "128 bits hex encoded")
	assert.True(t, token.Active)

	resolved, err := tokens.Resolve(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, resolved.ID)
}

func TestToken_Issue_IsUnique(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := booking.NewTokenAuthority(st)

	t1, err := tokens.Issue(ctx, "appt-1")
	require.NoError(t, err)
	t2, err := tokens.Issue(ctx, "appt-2")
	require.NoError(t, err)

	assert.NotEqual(t, t1.Value, t2.Value)
}

func TestToken_Reissue_SupersedesPrevious(t *testing.T) {
	// GIVEN: An appointment with a token, then a fresh one issued
	// WHEN: Resolving the old value
	// THEN: ErrInvalidToken; the new value still resolves

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	tokens := booking.NewTokenAuthority(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	appt, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)

	old, err := tokens.Issue(ctx, appt.ID)
	require.NoError(t, err)
	fresh, err := tokens.Issue(ctx, appt.ID)
	require.NoError(t, err)

	_, err = tokens.Resolve(ctx, old.Value)
	assert.ErrorIs(t, err, booking.ErrInvalidToken)

	resolved, err := tokens.Resolve(ctx, fresh.Value)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, resolved.ID)
}

func TestToken_Resolve_MalformedValues(t *testing.T) {
	// Unknown, malformed, and superseded values are indistinguishable.
	ctx := context.Background()
	st := newTestStore(t)
	tokens := booking.NewTokenAuthority(st)

	for _, value := range []string{
		"",
		"short",
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",                                 // right length, not hex
		"00112233445566778899aabbccddeeff00",                               // too long
		"00112233445566778899aabbccddeeff",                                 // right shape, never issued
		"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", // 256-bit value
	} {
		_, err := tokens.Resolve(ctx, value)
		assert.ErrorIs(t, err, booking.ErrInvalidToken, "value %q", value)
	}
}

func TestToken_Revoke_KillsActiveToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	tokens := booking.NewTokenAuthority(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	appt, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)
	token, err := tokens.Issue(ctx, appt.ID)
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(ctx, appt.ID))

	_, err = tokens.Resolve(ctx, token.Value)
	assert.ErrorIs(t, err, booking.ErrInvalidToken)
}
