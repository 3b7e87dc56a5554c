package notify

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/osengo/booking-engine/booking"
)

// calendarInvite renders a single-event iCalendar payload for the
// appointment so mail clients can offer an "add to calendar" action.
func calendarInvite(event booking.Event) ([]byte, error) {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, string(event.Appointment.ID))
	ve.Props.SetText(ical.PropSummary, fmt.Sprintf("Appointment at %s", event.Agency.Name))
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.Slot.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.Slot.End)
	if event.Agency.City != "" {
		ve.Props.SetText(ical.PropLocation, event.Agency.City)
	}
	if event.Agency.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Agency.Description)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//booking-engine//EN")
	cal.Children = append(cal.Children, ve)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("notify: failed to encode calendar invite: %w", err)
	}
	return buf.Bytes(), nil
}
