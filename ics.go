package main

import (
	"fmt"
	"io"

	"github.com/emersion/go-ical"
)

// writeICS renders canonical events as an iCalendar document. This backs the
// read-only preview feed: what the next reconciliation run would mirror,
// before anything is written to the calendar.
func writeICS(w io.Writer, events []CanonicalEvent) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//untiscal//EN")

	for i, event := range events {
		vevent := ical.NewComponent(ical.CompEvent)

		uid := fmt.Sprintf("%s-%d@untiscal", event.Start.UTC().Format("20060102T150405Z"), i)
		vevent.Props.SetText(ical.PropUID, uid)
		vevent.Props.SetText(ical.PropSummary, event.Title)
		vevent.Props.SetText(ical.PropDescription, event.Body.String())
		vevent.Props.SetText(ical.PropLocation, event.Body.Room)
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, event.Start.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeStart, event.Start)
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.End)

		cal.Children = append(cal.Children, vevent)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode iCalendar: %w", err)
	}
	return nil
}
