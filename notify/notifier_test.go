package notify_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osengo/booking-engine/booking"
	"github.com/osengo/booking-engine/notify"
)

// captureSender records the last message instead of delivering it.
type captureSender struct {
	sent []notify.EmailMessage
	fail bool
}

func (c *captureSender) Send(_ context.Context, msg notify.EmailMessage) error {
	if c.fail {
		return fmt.Errorf("smtp down")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func testEvent(kind booking.EventKind, token string) booking.Event {
	start := time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)
	return booking.Event{
		Kind: kind,
		Appointment: booking.Appointment{
			ID:     "appt-1",
			SlotID: "slot-1",
			Owner: booking.Owner{
				Name:    "Ada",
				Surname: "Lovelace",
				Email:   "ada@example.com",
				Phone:   "+33600000000",
			},
			Status:    booking.StatusPendingReview,
			CreatedAt: start,
		},
		Slot: booking.Slot{
			ID:       "slot-1",
			AgencyID: "agency-1",
			Start:    start,
			End:      start.Add(30 * time.Minute),
			Status:   booking.SlotHeld,
		},
		Agency: booking.Agency{
			ID:   "agency-1",
			Name: "Lyon Centre",
			City: "Lyon",
		},
		Token: token,
		At:    start,
	}
}

func TestEmailNotifier_Created_CarriesTokenLinkAndInvite(t *testing.T) {
	// GIVEN: A Created event with a token
	// WHEN: Notifying
	// THEN: The email goes to the owner, links the self-service page,
	//       and attaches a calendar invite

	sender := &captureSender{}
	n := notify.NewEmailNotifier(sender, "https://booking.example.com/", nil)

	err := n.Notify(context.Background(), testEvent(booking.EventCreated, "deadbeefdeadbeefdeadbeefdeadbeef"))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Contains(t, msg.Subject, "received")
	assert.Contains(t, msg.Body, "Lyon Centre")
	assert.Contains(t, msg.Body, "https://booking.example.com/api/appointments/view?token=deadbeefdeadbeefdeadbeefdeadbeef")

	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "appointment.ics", msg.Attachment.Filename)
	ics := string(msg.Attachment.Content)
	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Contains(t, ics, "BEGIN:VEVENT")
	assert.Contains(t, ics, "SUMMARY:Appointment at Lyon Centre")
}

func TestEmailNotifier_Cancelled_NoTokenNoInvite(t *testing.T) {
	// A finalized appointment gets neither a self-service link nor an invite.
	sender := &captureSender{}
	n := notify.NewEmailNotifier(sender, "https://booking.example.com", nil)

	err := n.Notify(context.Background(), testEvent(booking.EventCancelled, ""))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Contains(t, msg.Subject, "cancelled")
	assert.NotContains(t, msg.Body, "token=")
	assert.Nil(t, msg.Attachment)
}

func TestEmailNotifier_SenderFailure_Propagates(t *testing.T) {
	// The lifecycle logs this and moves on; the notifier just reports it.
	sender := &captureSender{fail: true}
	n := notify.NewEmailNotifier(sender, "https://booking.example.com", nil)

	err := n.Notify(context.Background(), testEvent(booking.EventConfirmed, ""))
	assert.Error(t, err)
}

func TestRecorder_CapturesInOrder(t *testing.T) {
	r := notify.NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Notify(ctx, testEvent(booking.EventCreated, "t1")))
	require.NoError(t, r.Notify(ctx, testEvent(booking.EventConfirmed, "")))

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, booking.EventCreated, events[0].Kind)
	assert.Equal(t, booking.EventConfirmed, events[1].Kind)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, booking.EventConfirmed, last.Kind)
}
