package calendar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is one study block. Date is YYYY-MM-DD, Start and End are HH:MM in
// the writer's time zone.
type Event struct {
	Title string
	Date  string
	Start string
	End   string
}

// EventWriter inserts events and returns the provider's event id.
type EventWriter interface {
	InsertEvent(ctx context.Context, ev Event) (string, error)
}

type GoogleWriter struct {
	svc        *gcal.Service
	calendarID string
	timeZone   string
}

// NewGoogleWriter authenticates with a service-account credentials file.
// A missing file is a configuration error so the planner can run without a
// calendar.
func NewGoogleWriter(ctx context.Context, credentialsFile, calendarID, timeZone string) (*GoogleWriter, error) {
	if _, err := os.Stat(credentialsFile); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: calendar credentials %s not found", types.ErrConfiguration, credentialsFile)
	}
	if _, err := time.LoadLocation(timeZone); err != nil {
		return nil, fmt.Errorf("%w: calendar time zone %q: %v", types.ErrConfiguration, timeZone, err)
	}

	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: calendar client: %v", types.ErrConfiguration, err)
	}
	return &GoogleWriter{svc: svc, calendarID: calendarID, timeZone: timeZone}, nil
}

func (w *GoogleWriter) InsertEvent(ctx context.Context, ev Event) (string, error) {
	defer logging.LogDuration(ctx, "calendar_insert_event")()

	created, err := w.svc.Events.Insert(w.calendarID, ToGoogleEvent(ev, w.timeZone)).Context(ctx).Do()
	if err != nil {
		return "", types.NewExternalServiceError("calendar", err)
	}
	return created.Id, nil
}

// ToGoogleEvent uses floating local times plus an explicit zone, which is
// how Calendar expects wall-clock events.
func ToGoogleEvent(ev Event, timeZone string) *gcal.Event {
	return &gcal.Event{
		Summary: ev.Title,
		Start:   &gcal.EventDateTime{DateTime: ev.Date + "T" + ev.Start + ":00", TimeZone: timeZone},
		End:     &gcal.EventDateTime{DateTime: ev.Date + "T" + ev.End + ":00", TimeZone: timeZone},
	}
}
