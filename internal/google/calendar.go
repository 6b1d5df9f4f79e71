package google

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	oauth2google "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarService mirrors confirmed appointments into a Google Calendar
// using service-account credentials. The bot works without it; callers
// skip syncing when the service is nil.
type CalendarService struct {
	svc        *calendar.Service
	calendarID string
	logger     zerolog.Logger
}

// NewCalendarService reads service-account JSON credentials from
// credentialsPath and builds a client for calendarID.
func NewCalendarService(ctx context.Context, credentialsPath, calendarID string, logger zerolog.Logger) (*CalendarService, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := oauth2google.CredentialsFromJSON(ctx, data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	return &CalendarService{svc: svc, calendarID: calendarID, logger: logger}, nil
}

// CreateEvent inserts an event for the appointment interval and returns
// the created event id.
func (c *CalendarService) CreateEvent(ctx context.Context, title string, start, end time.Time, description string) (string, error) {
	event := &calendar.Event{
		Summary:     title,
		Description: description,
		Start:       &calendar.EventDateTime{DateTime: start.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.UTC().Format(time.RFC3339)},
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	c.logger.Info().Str("event_id", created.Id).Str("title", title).Msg("calendar event created")
	return created.Id, nil
}

// DeleteEvent removes a previously created event, e.g. after a client
// cancels the appointment.
func (c *CalendarService) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
