package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/calendar"
)

// Backend implements the calendar backend port on the Google Calendar API.
type Backend struct {
	service    *gcalendar.Service
	calendarID string
	timezone   string
}

var _ calendar.Backend = (*Backend)(nil)

// New builds a backend from an OAuth credentials file and a previously
// obtained token file.
func New(ctx context.Context, credentialsPath, tokenPath, calendarID, timezone string) (*Backend, error) {
	creds, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("gcal: read credentials: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(creds, gcalendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("gcal: parse credentials: %w", err)
	}

	rawToken, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("gcal: read token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(rawToken, &token); err != nil {
		return nil, fmt.Errorf("gcal: parse token: %w", err)
	}

	service, err := gcalendar.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("gcal: build service: %w", err)
	}
	return &Backend{service: service, calendarID: calendarID, timezone: timezone}, nil
}

func (b *Backend) List(ctx context.Context, from, to time.Time, query string) ([]calendar.Event, error) {
	call := b.service.Events.List(b.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if query != "" {
		call = call.Q(query)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("gcal: list events: %w", err)
	}

	events := make([]calendar.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		e, err := b.fromAPI(item)
		if err != nil {
			// All-day events have no start time; they never block slots.
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (b *Backend) Insert(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	created, err := b.service.Events.Insert(b.calendarID, b.toAPI(e)).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, fmt.Errorf("gcal: insert event: %w", err)
	}
	return b.fromAPI(created)
}

func (b *Backend) Get(ctx context.Context, id string) (calendar.Event, error) {
	item, err := b.service.Events.Get(b.calendarID, id).Context(ctx).Do()
	if isGone(err) {
		return calendar.Event{}, calendar.ErrBookingNotFound
	}
	if err != nil {
		return calendar.Event{}, fmt.Errorf("gcal: get event: %w", err)
	}
	return b.fromAPI(item)
}

func (b *Backend) Update(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	updated, err := b.service.Events.Update(b.calendarID, e.ID, b.toAPI(e)).Context(ctx).Do()
	if isGone(err) {
		return calendar.Event{}, calendar.ErrBookingNotFound
	}
	if err != nil {
		return calendar.Event{}, fmt.Errorf("gcal: update event: %w", err)
	}
	return b.fromAPI(updated)
}

func (b *Backend) Delete(ctx context.Context, id string) error {
	err := b.service.Events.Delete(b.calendarID, id).Context(ctx).Do()
	if isGone(err) {
		return calendar.ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("gcal: delete event: %w", err)
	}
	return nil
}

// isGone reports whether the API says the event no longer exists.
// Google returns 410 for previously deleted events.
func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}

func (b *Backend) toAPI(e calendar.Event) *gcalendar.Event {
	return &gcalendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Start: &gcalendar.EventDateTime{
			DateTime: e.Start.Format(time.RFC3339),
			TimeZone: b.timezone,
		},
		End: &gcalendar.EventDateTime{
			DateTime: e.End.Format(time.RFC3339),
			TimeZone: b.timezone,
		},
		Reminders: &gcalendar.EventReminders{
			UseDefault: false,
			Overrides: []*gcalendar.EventReminder{
				{Method: "popup", Minutes: 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

func (b *Backend) fromAPI(item *gcalendar.Event) (calendar.Event, error) {
	if item.Start == nil || item.Start.DateTime == "" {
		return calendar.Event{}, fmt.Errorf("gcal: event %s has no start time", item.Id)
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("gcal: parse start of %s: %w", item.Id, err)
	}
	end := start.Add(time.Hour)
	if item.End != nil && item.End.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
			end = parsed
		}
	}
	return calendar.Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
	}, nil
}
