package booking_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osengo/booking-engine/booking"
	"github.com/osengo/booking-engine/booking/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testAgencyID = booking.AgencyID("agency-1")

func newTestStore(t *testing.T) *store.TxMemory {
	st := store.NewTxMemory()
	err := st.SaveAgency(context.Background(), booking.Agency{
		ID:        testAgencyID,
		Name:      "Lyon Centre",
		City:      "Lyon",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return st
}

func seedSlot(t *testing.T, st booking.Store, id string, start time.Time) booking.Slot {
	slot := booking.Slot{
		ID:       booking.SlotID(id),
		AgencyID: testAgencyID,
		Start:    start,
		End:      start.Add(30 * time.Minute),
		Status:   booking.SlotOpen,
	}
	require.NoError(t, st.SaveSlot(context.Background(), slot))
	return slot
}

func draft(email string) booking.AppointmentDraft {
	return booking.AppointmentDraft{
		Owner: booking.Owner{
			Name:    "Ada",
			Surname: "Lovelace",
			Email:   email,
			Phone:   "+33600000000",
		},
	}
}

func mondayAt(hour int) time.Time {
	return time.Date(2026, time.September, 7, hour, 0, 0, 0, time.UTC)
}

// =============================================================================
// RESERVE TESTS
// =============================================================================

func TestReserve_OpenSlot_CreatesPendingHold(t *testing.T) {
	// GIVEN: An open slot
	// WHEN: Reserving it
	// THEN: A PendingReview appointment exists and the slot is Held

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	appt, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPendingReview, appt.Status)
	assert.Equal(t, slot.ID, appt.SlotID)

	got, err := st.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.SlotHeld, got.Status)
}

func TestReserve_HeldSlot_Unavailable(t *testing.T) {
	// GIVEN: A slot already held by another appointment
	// WHEN: Reserving it again
	// THEN: ErrSlotUnavailable, and no second appointment is created

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	_, err := ledger.Reserve(ctx, slot.ID, draft("first@example.com"))
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, slot.ID, draft("second@example.com"))
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)

	appts, err := st.ListAppointments(ctx, booking.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestReserve_UnknownSlot_Unavailable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)

	_, err := ledger.Reserve(ctx, "no-such-slot", draft("ada@example.com"))
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
}

func TestReserve_ConcurrentSameSlot_ExactlyOneWinner(t *testing.T) {
	// GIVEN: 32 clients racing for the same open slot
	// WHEN: All reserve concurrently
	// THEN: Exactly one wins, the rest get ErrSlotUnavailable

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	const clients = 32
	var wg sync.WaitGroup
	errs := make([]error, clients)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Reserve(ctx, slot.ID, draft(fmt.Sprintf("c%d@example.com", i)))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, winners, "exactly one reservation must win the race")

	appts, err := st.ListAppointments(ctx, booking.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestReserve_ConcurrentDistinctSlots_AllWin(t *testing.T) {
	// GIVEN: One open slot per client
	// WHEN: All reserve concurrently
	// THEN: Every reservation succeeds

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)

	const clients = 8
	slots := make([]booking.Slot, clients)
	for i := range slots {
		slots[i] = seedSlot(t, st, fmt.Sprintf("slot-%d", i), mondayAt(9).Add(time.Duration(i)*30*time.Minute))
	}

	var wg sync.WaitGroup
	errs := make([]error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Reserve(ctx, slots[i].ID, draft(fmt.Sprintf("c%d@example.com", i)))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "slot %d", i)
	}
}

// =============================================================================
// RELEASE TESTS
// =============================================================================

func TestRelease_FreesSlot_AndIsIdempotent(t *testing.T) {
	// GIVEN: A held slot
	// WHEN: Releasing its appointment twice
	// THEN: The slot is Open after the first release, the second is a no-op

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	appt, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)

	_, err = ledger.Release(ctx, appt.ID, nil)
	require.NoError(t, err)
	got, err := st.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.SlotOpen, got.Status)

	// Releasing again must not fail or flip anything
	_, err = ledger.Release(ctx, appt.ID, nil)
	require.NoError(t, err)
	got, err = st.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.SlotOpen, got.Status)
}

func TestRelease_UnknownAppointment_NotFound(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)

	_, err := ledger.Release(ctx, "no-such-appointment", nil)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestRelease_SlotDeleted_NoOp(t *testing.T) {
	// GIVEN: The appointment's slot was deleted after a manual cleanup
	// WHEN: Releasing the appointment
	// THEN: Nothing left to free, no error

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	appt, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)
	require.NoError(t, st.DeleteSlot(ctx, slot.ID))

	_, err = ledger.Release(ctx, appt.ID, nil)
	assert.NoError(t, err)
}

func TestRelease_AfterRebooking_LeavesNewHoldIntact(t *testing.T) {
	// GIVEN: a1 released its slot and a2 has since reserved it
	// WHEN: A stale second release of a1 arrives
	// THEN: The slot stays Held for a2 and cannot be reserved a third time

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	a1, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)
	_, err = ledger.Release(ctx, a1.ID, func(a *booking.Appointment) error {
		a.Status = booking.StatusCancelled
		return nil
	})
	require.NoError(t, err)

	a2, err := ledger.Reserve(ctx, slot.ID, draft("grace@example.com"))
	require.NoError(t, err)

	_, err = ledger.Release(ctx, a1.ID, nil)
	require.NoError(t, err)

	got, err := st.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.SlotHeld, got.Status)

	holder, err := st.GetLiveAppointmentBySlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, a2.ID, holder.ID)

	_, err = ledger.Reserve(ctx, slot.ID, draft("alan@example.com"))
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
}

func TestRelease_UpdateCallback_CommitsWithSlot(t *testing.T) {
	// GIVEN: A held slot
	// WHEN: Releasing with a callback mutating the appointment
	// THEN: The status write and the slot reopening land together

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	appt, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)

	released, err := ledger.Release(ctx, appt.ID, func(a *booking.Appointment) error {
		a.Status = booking.StatusCancelled
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, released.Status)

	stored, err := st.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, stored.Status)

	got, err := st.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.SlotOpen, got.Status)
}

func TestRelease_UpdateCallbackError_AbortsEverything(t *testing.T) {
	// GIVEN: A held slot
	// WHEN: The release's update callback refuses
	// THEN: Neither the appointment nor the slot changed

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	appt, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)

	boom := fmt.Errorf("refused")
	_, err = ledger.Release(ctx, appt.ID, func(a *booking.Appointment) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := st.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPendingReview, stored.Status)

	got, err := st.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.SlotHeld, got.Status)
}

// =============================================================================
// REBIND TESTS
// =============================================================================

func TestRebind_MovesHoldAtomically(t *testing.T) {
	// GIVEN: An appointment holding slot A and an open slot B
	// WHEN: Rebinding to B
	// THEN: B is Held, A is Open, the appointment references B

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slotA := seedSlot(t, st, "slot-a", mondayAt(9))
	slotB := seedSlot(t, st, "slot-b", mondayAt(10))

	appt, err := ledger.Reserve(ctx, slotA.ID, draft("ada@example.com"))
	require.NoError(t, err)

	updated, err := ledger.Rebind(ctx, appt.ID, slotB.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, slotB.ID, updated.SlotID)

	a, err := st.GetSlot(ctx, slotA.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.SlotOpen, a.Status)

	b, err := st.GetSlot(ctx, slotB.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.SlotHeld, b.Status)
}

func TestRebind_TargetHeld_KeepsOldBinding(t *testing.T) {
	// GIVEN: Slot B is held by someone else
	// WHEN: Rebinding from A to B
	// THEN: ErrSlotUnavailable and the old binding is untouched

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slotA := seedSlot(t, st, "slot-a", mondayAt(9))
	slotB := seedSlot(t, st, "slot-b", mondayAt(10))

	appt, err := ledger.Reserve(ctx, slotA.ID, draft("ada@example.com"))
	require.NoError(t, err)
	_, err = ledger.Reserve(ctx, slotB.ID, draft("rival@example.com"))
	require.NoError(t, err)

	_, err = ledger.Rebind(ctx, appt.ID, slotB.ID, nil)
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)

	a, err := st.GetSlot(ctx, slotA.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.SlotHeld, a.Status, "old slot must stay held after a failed rebind")

	got, err := st.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, slotA.ID, got.SlotID)
}

func TestRebind_SameSlot_Unavailable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slot := seedSlot(t, st, "slot-1", mondayAt(9))

	appt, err := ledger.Reserve(ctx, slot.ID, draft("ada@example.com"))
	require.NoError(t, err)

	_, err = ledger.Rebind(ctx, appt.ID, slot.ID, nil)
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
}

func TestRebind_AppliesUpdateCallback(t *testing.T) {
	// GIVEN: A confirmed appointment
	// WHEN: Rebinding with a callback demoting its status
	// THEN: The persisted appointment carries the demoted status

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slotA := seedSlot(t, st, "slot-a", mondayAt(9))
	slotB := seedSlot(t, st, "slot-b", mondayAt(10))

	appt, err := ledger.Reserve(ctx, slotA.ID, draft("ada@example.com"))
	require.NoError(t, err)
	appt.Status = booking.StatusConfirmed
	require.NoError(t, st.SaveAppointment(ctx, *appt))

	updated, err := ledger.Rebind(ctx, appt.ID, slotB.ID, func(a *booking.Appointment) {
		a.Status = booking.StatusPendingReview
	})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPendingReview, updated.Status)

	got, err := st.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPendingReview, got.Status)
}

func TestRebind_CrossingRebinds_NoDeadlock(t *testing.T) {
	// GIVEN: Appointment 1 on slot A, appointment 2 on slot B, open slots C and D
	// WHEN: Both rebind concurrently in crossing directions
	// THEN: Both complete without deadlock

	ctx := context.Background()
	st := newTestStore(t)
	ledger := booking.NewReservationLedger(st)
	slotA := seedSlot(t, st, "slot-a", mondayAt(9))
	slotB := seedSlot(t, st, "slot-b", mondayAt(10))
	slotC := seedSlot(t, st, "slot-c", mondayAt(11))
	slotD := seedSlot(t, st, "slot-d", mondayAt(12))

	appt1, err := ledger.Reserve(ctx, slotA.ID, draft("one@example.com"))
	require.NoError(t, err)
	appt2, err := ledger.Reserve(ctx, slotB.ID, draft("two@example.com"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	var err1, err2 error
	go func() {
		defer wg.Done()
		_, err1 = ledger.Rebind(ctx, appt1.ID, slotD.ID, nil)
	}()
	go func() {
		defer wg.Done()
		_, err2 = ledger.Rebind(ctx, appt2.ID, slotC.ID, nil)
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("crossing rebinds deadlocked")
	}

	assert.NoError(t, err1)
	assert.NoError(t, err2)
}
