/*
Package notify delivers lifecycle notifications at the boundary.

PURPOSE:
  Implements the booking.Notifier port. The core calls Notify after a
  transition has been committed; everything here is best-effort and an
  error never rolls the transition back.

KEY CONCEPTS:
  - EmailNotifier: renders one email per lifecycle event, with the
    self-service link when a token is present and a calendar invite for
    events that carry a confirmed or pending time
  - EmailSender: delivery abstraction (SendGrid or stub)
  - Recorder: in-memory notifier for tests

SEE ALSO:
  - booking/types.go: The Notifier port and Event payload
  - email.go: SendGrid delivery
  - ical.go: Calendar invite rendering
*/
package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/osengo/booking-engine/booking"
	"github.com/osengo/booking-engine/logging"
	"github.com/osengo/booking-engine/metrics"
)

// EmailNotifier turns lifecycle events into emails to the appointment owner.
type EmailNotifier struct {
	sender  EmailSender
	baseURL string
	logger  *logging.Logger
}

// NewEmailNotifier creates a notifier that emails the appointment owner.
// baseURL is the public origin used to build self-service links.
func NewEmailNotifier(sender EmailSender, baseURL string, logger *logging.Logger) *EmailNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailNotifier{
		sender:  sender,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// Notify renders and sends the email for one lifecycle event.
func (n *EmailNotifier) Notify(ctx context.Context, event booking.Event) error {
	msg := EmailMessage{
		To:      event.Appointment.Owner.Email,
		ToName:  fmt.Sprintf("%s %s", event.Appointment.Owner.Name, event.Appointment.Owner.Surname),
		Subject: n.subject(event),
		Body:    n.body(event),
	}

	// Attach a calendar invite whenever the appointment still has a time.
	switch event.Kind {
	case booking.EventCreated, booking.EventConfirmed, booking.EventRescheduled:
		invite, err := calendarInvite(event)
		if err != nil {
			n.logger.Error("failed to build calendar invite", "error", err, "appointment_id", event.Appointment.ID)
		} else {
			msg.Attachment = &Attachment{
				Filename:    "appointment.ics",
				ContentType: "text/calendar",
				Content:     invite,
			}
		}
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}

func (n *EmailNotifier) subject(event booking.Event) string {
	when := event.Slot.Start.Format("Mon 2 Jan 15:04")
	switch event.Kind {
	case booking.EventCreated:
		return fmt.Sprintf("Appointment request received for %s", when)
	case booking.EventConfirmed:
		return fmt.Sprintf("Appointment confirmed for %s", when)
	case booking.EventRejected:
		return "Your appointment request could not be accommodated"
	case booking.EventCancelled:
		return "Your appointment has been cancelled"
	case booking.EventRescheduled:
		return fmt.Sprintf("Appointment moved to %s", when)
	default:
		return "Appointment update"
	}
}

func (n *EmailNotifier) body(event booking.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", event.Appointment.Owner.Name)

	when := fmt.Sprintf("%s from %s to %s",
		event.Slot.Start.Format("Monday 2 January 2006"),
		event.Slot.Start.Format("15:04"),
		event.Slot.End.Format("15:04"))

	switch event.Kind {
	case booking.EventCreated:
		fmt.Fprintf(&b, "We received your appointment request at %s on %s.\n", event.Agency.Name, when)
		b.WriteString("Our team will review it and confirm shortly.\n")
	case booking.EventConfirmed:
		fmt.Fprintf(&b, "Your appointment at %s on %s is confirmed.\n", event.Agency.Name, when)
	case booking.EventRejected:
		fmt.Fprintf(&b, "We are sorry, your appointment request at %s could not be accommodated.\n", event.Agency.Name)
		b.WriteString("The time slot has been released; feel free to book another one.\n")
	case booking.EventCancelled:
		fmt.Fprintf(&b, "Your appointment at %s on %s has been cancelled.\n", event.Agency.Name, when)
	case booking.EventRescheduled:
		fmt.Fprintf(&b, "Your appointment at %s has been moved to %s.\n", event.Agency.Name, when)
		b.WriteString("It is pending review again and will be confirmed shortly.\n")
	}

	if event.Token != "" && n.baseURL != "" {
		fmt.Fprintf(&b, "\nManage your appointment (view, cancel or reschedule):\n%s/api/appointments/view?token=%s\n", n.baseURL, event.Token)
	}

	b.WriteString("\nBest regards,\nThe booking team\n")
	return b.String()
}

// LogNotifier writes events to the log only. Used when email is disabled.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a notifier that only logs events.
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event booking.Event) error {
	n.logger.Info("lifecycle event",
		"kind", event.Kind,
		"appointment_id", event.Appointment.ID,
		"slot_id", event.Slot.ID,
		"agency", event.Agency.Name)
	metrics.NotificationsTotal.WithLabelValues("logged").Inc()
	return nil
}

// Recorder captures events in memory for test assertions.
type Recorder struct {
	mu     sync.Mutex
	events []booking.Event
	fail   bool
}

// NewRecorder creates an in-memory notifier for tests.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailNext makes every subsequent Notify return an error, so tests can
// verify that delivery failure never affects committed state.
func (r *Recorder) FailNext(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *Recorder) Notify(ctx context.Context, event booking.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if r.fail {
		return fmt.Errorf("notify: recorder configured to fail")
	}
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []booking.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]booking.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event, or false when none were recorded.
func (r *Recorder) Last() (booking.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return booking.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
