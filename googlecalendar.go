package main

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendar implements CalendarClient against the Google Calendar API.
//
// The service is rebuilt from the persisted credential on every call rather
// than cached: the token file is the source of truth and may be replaced by
// a refresh between calls.
type GoogleCalendar struct {
	tokens *TokenManager
}

// NewGoogleCalendar creates a Google Calendar client over the token manager.
func NewGoogleCalendar(tokens *TokenManager) *GoogleCalendar {
	return &GoogleCalendar{tokens: tokens}
}

func (c *GoogleCalendar) service(ctx context.Context) (*calendar.Service, error) {
	httpClient, err := c.tokens.Client(ctx)
	if err != nil {
		return nil, err
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return service, nil
}

// ListEvents retrieves events from a calendar within the specified time window.
// Important: Sets SingleEvents = true to expand recurring events.
func (c *GoogleCalendar) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	service, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	eventsList, err := service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true). // Expand recurring events
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return eventsList.Items, nil
}

// CreateEvent inserts a new event into a calendar.
// Important: Sets sendUpdates="none" to prevent notifications.
func (c *GoogleCalendar) CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) error {
	service, err := c.service(ctx)
	if err != nil {
		return err
	}

	_, err = service.Events.Insert(calendarID, event).
		SendUpdates("none"). // Disable notifications
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// UpdateEvent replaces an existing event in a calendar.
func (c *GoogleCalendar) UpdateEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) error {
	service, err := c.service(ctx)
	if err != nil {
		return err
	}

	_, err = service.Events.Update(calendarID, eventID, event).
		SendUpdates("none"). // Disable notifications
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return nil
}
