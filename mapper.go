package main

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Fallback sentinels for lessons with missing data. Malformed lessons are
// handled by these, not by errors.
const (
	noSubject  = "No Subject Found"
	noRoom     = "No Room Found"
	noHomework = "No Homework"
)

const cellStateCancel = "CANCEL"

// EventBody is the immutable value behind an event's description. Two bodies
// are equal iff their Room and Homework fields are equal, and equal bodies
// always render byte-identical strings; the rendered string stored on the
// calendar event is what staleness detection compares against.
type EventBody struct {
	Room     string
	Homework string
}

// NewEventBody builds the body for a room label and an optional homework.
func NewEventBody(room string, homework *Homework) EventBody {
	body := EventBody{Room: room, Homework: noHomework}
	if homework != nil {
		body.Homework = homework.Text
	}
	return body
}

// String renders the description stored on the calendar event.
func (b EventBody) String() string {
	return fmt.Sprintf("Room -> <b>%s</b><br>HomeWork -> <b>%s</b>", b.Room, b.Homework)
}

// CanonicalEvent is the authoritative description of what a calendar entry
// for a lesson should look like. It exists only during one reconciliation
// pass; every field, including the reminder ladder, is re-derived from
// scratch on each pass.
type CanonicalEvent struct {
	Start   time.Time
	End     time.Time
	Title   string
	ColorID string
	Body    EventBody

	// ReminderDays lists popup reminders as days before the start time.
	ReminderDays []int64
}

// mapLesson converts one lesson (plus the homework set for its window) into
// a canonical event. Returns ok=false for cancelled lessons, which must
// produce no calendar entry. Past-lesson filtering is the caller's job.
func mapLesson(lesson Lesson, homeworks []Homework, colors ColorTable, loc *time.Location) (CanonicalEvent, bool) {
	if lesson.CellState == cellStateCancel {
		return CanonicalEvent{}, false
	}

	event := CanonicalEvent{
		Start:   untisDateTime(lesson.Date, lesson.StartTime, loc),
		End:     untisDateTime(lesson.Date, lesson.EndTime, loc),
		Title:   noSubject,
		ColorID: colors.ForState(lesson.CellState),
	}

	if len(lesson.Subjects) > 0 && lesson.Subjects[0].LongName != "" {
		event.Title = lesson.Subjects[0].LongName
	}

	room := noRoom
	if len(lesson.Rooms) > 0 && lesson.Rooms[0].LongName != "" {
		room = lesson.Rooms[0].LongName
	}

	homework := findHomework(lesson, homeworks)
	event.Body = NewEventBody(room, homework)

	// Homework reminders win over the exam ladder when both apply.
	switch {
	case homework != nil:
		event.ReminderDays = []int64{3, 1}
	case colors.IsExam(event.ColorID):
		event.ReminderDays = []int64{7, 3, 1}
	}

	return event, true
}

// findHomework returns the first homework matching the lesson by id and
// same-day date, or nil.
func findHomework(lesson Lesson, homeworks []Homework) *Homework {
	for i := range homeworks {
		if homeworks[i].LessonID == lesson.LessonID && homeworks[i].Date == lesson.Date {
			return &homeworks[i]
		}
	}
	return nil
}

// calendarEvent renders the canonical event as the Google Calendar payload
// used for both creates and updates.
func (e CanonicalEvent) calendarEvent(timezone string) *calendar.Event {
	event := &calendar.Event{
		Summary:     e.Title,
		Description: e.Body.String(),
		ColorId:     e.ColorID,
		Start: &calendar.EventDateTime{
			DateTime: e.Start.Format(time.RFC3339),
			TimeZone: timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: e.End.Format(time.RFC3339),
			TimeZone: timezone,
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			// UseDefault=false must survive JSON encoding even though it is
			// the zero value.
			ForceSendFields: []string{"UseDefault"},
		},
	}

	for _, days := range e.ReminderDays {
		event.Reminders.Overrides = append(event.Reminders.Overrides, &calendar.EventReminder{
			Method:  "popup",
			Minutes: days * 24 * 60,
		})
	}

	return event
}
