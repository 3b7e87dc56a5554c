package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osengo/booking-engine/booking"
)

func TestRegistry_Create_RejectsInvertedRange(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	reg := booking.NewSlotRegistry(st)

	start := mondayAt(9)
	_, err := reg.Create(ctx, testAgencyID, start, start)
	assert.ErrorIs(t, err, booking.ErrInvalidSlotRange)

	_, err = reg.Create(ctx, testAgencyID, start, start.Add(-time.Hour))
	assert.ErrorIs(t, err, booking.ErrInvalidSlotRange)
}

func TestRegistry_Create_UnknownAgency(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	reg := booking.NewSlotRegistry(st)

	_, err := reg.Create(ctx, "no-such-agency", mondayAt(9), mondayAt(10))
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestRegistry_CreateRange_SubdividesAndDropsRemainder(t *testing.T) {
	// GIVEN: A 9:00-10:45 range with 30 minute windows
	// WHEN: Creating the range
	// THEN: Three slots; the trailing 15 minutes are discarded

	ctx := context.Background()
	st := newTestStore(t)
	reg := booking.NewSlotRegistry(st)

	slots, err := reg.CreateRange(ctx, testAgencyID, mondayAt(9), mondayAt(10).Add(45*time.Minute), 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, mondayAt(9), slots[0].Start)
	assert.Equal(t, mondayAt(9).Add(30*time.Minute), slots[1].Start)
	assert.Equal(t, mondayAt(10), slots[2].Start)
	for _, s := range slots {
		assert.Equal(t, booking.SlotOpen, s.Status)
		assert.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
	}
}

func TestRegistry_ListAvailable_HidesHeldSlots(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	reg := booking.NewSlotRegistry(st)
	ledger := booking.NewReservationLedger(st)

	open := seedSlot(t, st, "slot-open", mondayAt(9))
	held := seedSlot(t, st, "slot-held", mondayAt(10))
	_, err := ledger.Reserve(ctx, held.ID, draft("ada@example.com"))
	require.NoError(t, err)

	slots, err := reg.ListAvailable(ctx, testAgencyID)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, open.ID, slots[0].ID)
}

func TestRegistry_Delete_HeldSlot_InUse(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	reg := booking.NewSlotRegistry(st)
	ledger := booking.NewReservationLedger(st)

	slot := seedSlot(t, st, "slot-1", mondayAt(9))
	_, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)

	err = reg.Delete(ctx, slot.ID)
	assert.ErrorIs(t, err, booking.ErrSlotInUse)

	// Still there
	_, err = reg.Get(ctx, slot.ID)
	assert.NoError(t, err)
}

func TestRegistry_Delete_OpenSlot_Removed(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	reg := booking.NewSlotRegistry(st)

	slot := seedSlot(t, st, "slot-1", mondayAt(9))
	require.NoError(t, reg.Delete(ctx, slot.ID))

	_, err := reg.Get(ctx, slot.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}
