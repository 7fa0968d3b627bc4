package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Syncer reconciles the WebUntis timetable against the Google Calendar,
// one week window at a time.
type Syncer struct {
	untis    UntisClient
	calendar CalendarClient
	config   *Config
	loc      *time.Location

	// now is swappable for tests.
	now func() time.Time

	// mu serializes Sync and Preview. Both drive the same timetable
	// session, and a Logout on one side must not tear down a session the
	// other side is still using.
	mu sync.Mutex
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(untis UntisClient, calendarClient CalendarClient, config *Config, loc *time.Location) *Syncer {
	return &Syncer{
		untis:    untis,
		calendar: calendarClient,
		config:   config,
		loc:      loc,
		now:      time.Now,
	}
}

// Sync performs one full reconciliation run: per window, fetch both sides,
// map the timetable into canonical events, match them against existing
// calendar events, and create or update as needed.
//
// Windows are processed sequentially in ascending order and lessons
// sequentially within a window, so the create/update order is deterministic.
// The first error aborts the whole run; already-applied writes are not
// rolled back and nothing is retried within a run.
func (s *Syncer) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Println("Starting sync...")

	if err := s.untis.Login(ctx); err != nil {
		return fmt.Errorf("timetable login failed: %w", err)
	}
	defer func() {
		if err := s.untis.Logout(ctx); err != nil {
			log.Printf("Warning: timetable logout failed: %v", err)
		}
	}()

	for _, win := range syncWindows(s.now(), s.config.WeekCount) {
		if err := s.syncWindow(ctx, win); err != nil {
			return err
		}
	}

	log.Println("Sync complete.")
	return nil
}

func (s *Syncer) syncWindow(ctx context.Context, win window) error {
	existing, err := s.calendar.ListEvents(ctx, s.config.CalendarID, win.start, win.end)
	if err != nil {
		return fmt.Errorf("failed to list calendar events: %w", err)
	}
	owned := s.ownedEvents(existing)

	canonical, err := s.canonicalEvents(ctx, win)
	if err != nil {
		return err
	}

	for _, event := range canonical {
		switch result := matchEvent(event, owned); result.outcome {
		case noMatch:
			if err := s.calendar.CreateEvent(ctx, s.config.CalendarID, event.calendarEvent(s.config.Timezone)); err != nil {
				return fmt.Errorf("failed to create event %q: %w", event.Title, err)
			}
		case matchStale:
			if err := s.calendar.UpdateEvent(ctx, s.config.CalendarID, result.event.Id, event.calendarEvent(s.config.Timezone)); err != nil {
				return fmt.Errorf("failed to update event %s: %w", result.event.Id, err)
			}
		case matchFresh:
			// Nothing to do.
		}
	}

	return nil
}

// canonicalEvents fetches the timetable and homework for one window and maps
// them into canonical events, dropping cancelled lessons and lessons whose
// start is not strictly in the future.
func (s *Syncer) canonicalEvents(ctx context.Context, win window) ([]CanonicalEvent, error) {
	lessons, err := s.untis.TimetableForWeek(ctx, win.anchor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timetable: %w", err)
	}

	homeworks, err := s.untis.Homeworks(ctx, win.start, win.end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch homework: %w", err)
	}

	now := s.now()

	var events []CanonicalEvent
	for _, lesson := range lessons {
		if !untisDateTime(lesson.Date, lesson.StartTime, s.loc).After(now) {
			continue
		}
		event, ok := mapLesson(lesson, homeworks, s.config.Colors, s.loc)
		if !ok {
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// Preview maps all windows into the canonical events the next run would
// reconcile, without touching the calendar. Used by the ICS preview feed.
// A preview that arrives during a sync run waits for the run to finish.
func (s *Syncer) Preview(ctx context.Context) ([]CanonicalEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.untis.Login(ctx); err != nil {
		return nil, fmt.Errorf("timetable login failed: %w", err)
	}
	defer func() {
		if err := s.untis.Logout(ctx); err != nil {
			log.Printf("Warning: timetable logout failed: %v", err)
		}
	}()

	var events []CanonicalEvent
	for _, win := range syncWindows(s.now(), s.config.WeekCount) {
		windowEvents, err := s.canonicalEvents(ctx, win)
		if err != nil {
			return nil, err
		}
		events = append(events, windowEvents...)
	}

	return events, nil
}

// ownedEvents keeps only events in the color categories this tool owns.
// Anything else on the calendar is invisible to matching and never touched.
func (s *Syncer) ownedEvents(events []*calendar.Event) []*calendar.Event {
	ownedColors := s.config.Colors.Owned()

	var owned []*calendar.Event
	for _, event := range events {
		if ownedColors[event.ColorId] {
			owned = append(owned, event)
		}
	}
	return owned
}
