package main

import (
	"context"
	"time"

	"google.golang.org/api/calendar/v3"
)

// CalendarClient is the calendar collaborator the reconciler writes through.
// The production implementation is backed by Google Calendar; tests
// substitute a mock. Events are never deleted through this interface.
type CalendarClient interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error)
	CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) error
	UpdateEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) error
}
