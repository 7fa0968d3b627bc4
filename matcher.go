package main

import (
	"time"

	"google.golang.org/api/calendar/v3"
)

// matchOutcome classifies a canonical event against the existing calendar
// events in its window.
type matchOutcome int

const (
	// noMatch: no existing event has the same start, end and title.
	noMatch matchOutcome = iota
	// matchStale: an event matches on time and title but its stored
	// description differs from the freshly computed one.
	matchStale
	// matchFresh: an event matches and its description is current.
	matchFresh
)

// matchResult carries the outcome and, for stale and fresh matches, the
// calendar event that matched.
type matchResult struct {
	outcome matchOutcome
	event   *calendar.Event
}

// matchEvent finds the existing calendar event for a canonical event.
//
// Identity is the exact (start, end, title) triple: times compared as
// instants, titles compared exactly, no fuzzy matching, first satisfying
// event wins. The description is deliberately not part of identity; it only
// decides fresh vs. stale, so a room change or homework edit triggers an
// update of the same event instead of a duplicate create.
func matchEvent(c CanonicalEvent, existing []*calendar.Event) matchResult {
	for _, event := range existing {
		if event.Start == nil || event.End == nil {
			continue
		}

		start, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, event.End.DateTime)
		if err != nil {
			continue
		}

		if !start.Equal(c.Start) || !end.Equal(c.End) || event.Summary != c.Title {
			continue
		}

		if event.Description != c.Body.String() {
			return matchResult{outcome: matchStale, event: event}
		}
		return matchResult{outcome: matchFresh, event: event}
	}

	return matchResult{outcome: noMatch}
}
