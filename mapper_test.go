package main

import (
	"testing"
	"time"
)

func testColors() ColorTable {
	return ColorTable{Standard: 10, Exam: 11}
}

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}
	return loc
}

func mathLesson() Lesson {
	return Lesson{
		LessonID:  42,
		Date:      20240304,
		StartTime: 800,
		EndTime:   845,
		CellState: "REGULAR",
		Subjects:  []UntisElement{{Name: "MA", LongName: "Math"}},
		Rooms:     []UntisElement{{Name: "R101", LongName: "101"}},
	}
}

func TestMapLesson_Cancelled(t *testing.T) {
	lesson := mathLesson()
	lesson.CellState = "CANCEL"

	if _, ok := mapLesson(lesson, nil, testColors(), testLocation(t)); ok {
		t.Error("Expected cancelled lesson to be skipped")
	}
}

func TestMapLesson_Regular(t *testing.T) {
	loc := testLocation(t)

	event, ok := mapLesson(mathLesson(), nil, testColors(), loc)
	if !ok {
		t.Fatal("Expected regular lesson to be mapped")
	}

	if event.Title != "Math" {
		t.Errorf("Expected title 'Math', got %q", event.Title)
	}
	wantStart := time.Date(2024, 3, 4, 8, 0, 0, 0, loc)
	if !event.Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, event.Start)
	}
	wantEnd := time.Date(2024, 3, 4, 8, 45, 0, 0, loc)
	if !event.End.Equal(wantEnd) {
		t.Errorf("Expected end %v, got %v", wantEnd, event.End)
	}
	// REGULAR has no configured color and falls back to standard-minus-one.
	if event.ColorID != "9" {
		t.Errorf("Expected color '9', got %q", event.ColorID)
	}
	wantBody := "Room -> <b>101</b><br>HomeWork -> <b>No Homework</b>"
	if event.Body.String() != wantBody {
		t.Errorf("Expected description %q, got %q", wantBody, event.Body.String())
	}
	if len(event.ReminderDays) != 0 {
		t.Errorf("Expected no reminders, got %v", event.ReminderDays)
	}
}

func TestMapLesson_Exam(t *testing.T) {
	lesson := mathLesson()
	lesson.CellState = "EXAM"

	event, ok := mapLesson(lesson, nil, testColors(), testLocation(t))
	if !ok {
		t.Fatal("Expected exam lesson to be mapped")
	}

	if event.ColorID != "11" {
		t.Errorf("Expected exam color '11', got %q", event.ColorID)
	}
	want := []int64{7, 3, 1}
	if len(event.ReminderDays) != len(want) {
		t.Fatalf("Expected reminders %v, got %v", want, event.ReminderDays)
	}
	for i, days := range want {
		if event.ReminderDays[i] != days {
			t.Errorf("Expected reminder %d days at index %d, got %d", days, i, event.ReminderDays[i])
		}
	}
}

func TestMapLesson_Homework(t *testing.T) {
	homeworks := []Homework{{LessonID: 42, Date: 20240304, Text: "Read ch.5"}}

	event, ok := mapLesson(mathLesson(), homeworks, testColors(), testLocation(t))
	if !ok {
		t.Fatal("Expected lesson to be mapped")
	}

	wantBody := "Room -> <b>101</b><br>HomeWork -> <b>Read ch.5</b>"
	if event.Body.String() != wantBody {
		t.Errorf("Expected description %q, got %q", wantBody, event.Body.String())
	}
	if len(event.ReminderDays) != 2 || event.ReminderDays[0] != 3 || event.ReminderDays[1] != 1 {
		t.Errorf("Expected homework reminders [3 1], got %v", event.ReminderDays)
	}
}

func TestMapLesson_HomeworkWinsOverExam(t *testing.T) {
	lesson := mathLesson()
	lesson.CellState = "EXAM"
	homeworks := []Homework{{LessonID: 42, Date: 20240304, Text: "Revise"}}

	event, ok := mapLesson(lesson, homeworks, testColors(), testLocation(t))
	if !ok {
		t.Fatal("Expected lesson to be mapped")
	}

	if len(event.ReminderDays) != 2 || event.ReminderDays[0] != 3 || event.ReminderDays[1] != 1 {
		t.Errorf("Expected homework reminders to win over exam ladder, got %v", event.ReminderDays)
	}
	if event.ColorID != "11" {
		t.Errorf("Expected exam color to be kept, got %q", event.ColorID)
	}
}

func TestMapLesson_HomeworkOtherDayIgnored(t *testing.T) {
	homeworks := []Homework{{LessonID: 42, Date: 20240311, Text: "Next week"}}

	event, ok := mapLesson(mathLesson(), homeworks, testColors(), testLocation(t))
	if !ok {
		t.Fatal("Expected lesson to be mapped")
	}

	if event.Body.Homework != noHomework {
		t.Errorf("Expected homework on another date to be ignored, got %q", event.Body.Homework)
	}
}

func TestMapLesson_Sentinels(t *testing.T) {
	lesson := mathLesson()
	lesson.Subjects = nil
	lesson.Rooms = nil

	event, ok := mapLesson(lesson, nil, testColors(), testLocation(t))
	if !ok {
		t.Fatal("Expected lesson to be mapped")
	}

	if event.Title != noSubject {
		t.Errorf("Expected title sentinel %q, got %q", noSubject, event.Title)
	}
	if event.Body.Room != noRoom {
		t.Errorf("Expected room sentinel %q, got %q", noRoom, event.Body.Room)
	}
}

func TestEventBody_Deterministic(t *testing.T) {
	homework := &Homework{LessonID: 1, Date: 20240304, Text: "Read ch.5"}

	a := NewEventBody("101", homework)
	b := NewEventBody("101", homework)

	if a != b {
		t.Error("Expected identical inputs to produce equal bodies")
	}
	if a.String() != b.String() {
		t.Errorf("Expected identical bodies to render identical strings: %q vs %q", a.String(), b.String())
	}

	c := NewEventBody("102", homework)
	if a == c || a.String() == c.String() {
		t.Error("Expected different rooms to produce different bodies")
	}
}

func TestCalendarEvent_Reminders(t *testing.T) {
	lesson := mathLesson()
	lesson.CellState = "EXAM"

	event, ok := mapLesson(lesson, nil, testColors(), testLocation(t))
	if !ok {
		t.Fatal("Expected lesson to be mapped")
	}

	payload := event.calendarEvent("Europe/Berlin")

	if payload.Reminders == nil || payload.Reminders.UseDefault {
		t.Fatal("Expected reminders with UseDefault=false")
	}
	if len(payload.Reminders.Overrides) != 3 {
		t.Fatalf("Expected 3 reminder overrides, got %d", len(payload.Reminders.Overrides))
	}
	wantMinutes := []int64{7 * 24 * 60, 3 * 24 * 60, 24 * 60}
	for i, override := range payload.Reminders.Overrides {
		if override.Method != "popup" {
			t.Errorf("Expected popup reminder, got %q", override.Method)
		}
		if override.Minutes != wantMinutes[i] {
			t.Errorf("Expected %d minutes at index %d, got %d", wantMinutes[i], i, override.Minutes)
		}
	}
	if payload.Start.TimeZone != "Europe/Berlin" {
		t.Errorf("Expected timezone 'Europe/Berlin', got %q", payload.Start.TimeZone)
	}
}
