package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
)

var (
	ErrSlotTaken       = errors.New("calendar: slot no longer available")
	ErrBookingNotFound = errors.New("calendar: booking not found")
)

// Scheduler implements the studio's booking rules on top of a calendar
// backend and a hold store.
type Scheduler struct {
	backend Backend
	holds   HoldStore
	cfg     *config.Config
	loc     *time.Location
	now     func() time.Time
	log     *slog.Logger
}

func NewScheduler(backend Backend, holds HoldStore, cfg *config.Config, log *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar: load timezone: %w", err)
	}
	return &Scheduler{
		backend: backend,
		holds:   holds,
		cfg:     cfg,
		loc:     loc,
		now:     time.Now,
		log:     log.With(sl.Module("calendar")),
	}, nil
}

// Booking is what the studio needs to create an appointment.
type Booking struct {
	Start         time.Time
	CustomerName  string
	Phone         string
	Description   string
	DurationHours float64
	Price         float64
	UserID        string
}

// Search finds open slots between the query's dates. The studio works hourly
// slots within business hours and is closed on Sundays. Slots held by other
// conversations are skipped; slots held by the same user stay visible. Only
// the first few openings are returned, and each returned slot is claimed for
// the user so the suggestion survives until a decision.
func (s *Scheduler) Search(ctx context.Context, q SearchQuery) ([]Slot, error) {
	duration := s.sessionDuration(q.DurationHours, q.TattooPrice)

	from := time.Date(q.StartDate.Year(), q.StartDate.Month(), q.StartDate.Day(), 0, 0, 0, 0, s.loc)
	to := time.Date(q.EndDate.Year(), q.EndDate.Month(), q.EndDate.Day(), 23, 59, 59, 0, s.loc)
	if to.Before(from) {
		to = from.Add(24*time.Hour - time.Second)
	}

	events, err := s.backend.List(ctx, from, to, "")
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}

	now := s.now().In(s.loc)
	var slots []Slot
	firstDay := true
days:
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Sunday {
			firstDay = false
			continue
		}

		startHour := s.cfg.Calendar.BusinessStart
		if firstDay && q.PreferredTime != "" {
			if h := parseHour(q.PreferredTime); h > startHour {
				startHour = h
			}
		}
		firstDay = false

		for hour := startHour; hour < s.cfg.Calendar.BusinessEnd; hour++ {
			start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, s.loc)
			end := start.Add(duration)
			if endOfDay := time.Date(day.Year(), day.Month(), day.Day(), s.cfg.Calendar.BusinessEnd, 0, 0, 0, s.loc); end.After(endOfDay) {
				continue
			}
			if !start.After(now) {
				continue
			}
			if s.overlaps(events, start, end) >= s.cfg.Calendar.OverlapTolerance {
				continue
			}

			holder, err := s.holds.Holder(ctx, start)
			if err != nil {
				// Treat an unreadable hold as absent so a store outage
				// degrades to optimistic availability.
				s.log.Warn("hold lookup failed", sl.Err(err))
				holder = ""
			}
			if holder != "" && holder != q.UserID {
				continue
			}

			slots = append(slots, Slot{
				Date:      start.Format("2006-01-02"),
				StartTime: start.Format("15:04"),
				DateTime:  start,
			})
			if len(slots) >= s.cfg.Calendar.SuggestedSlots {
				break days
			}
		}
	}

	// Every suggested slot is held; the hold is what keeps the offer valid
	// while the customer decides.
	for _, slot := range slots {
		if err := s.holds.Hold(ctx, slot.DateTime, q.UserID); err != nil {
			s.log.Warn("could not hold slot", sl.Err(err), slog.String("slot", slot.DateTime.Format(time.RFC3339)))
		}
	}
	return slots, nil
}

// Book creates the appointment and releases the user's hold on that slot.
func (s *Scheduler) Book(ctx context.Context, b Booking) (Event, error) {
	start := b.Start.In(s.loc)
	duration := s.sessionDuration(b.DurationHours, b.Price)

	holder, err := s.holds.Holder(ctx, start)
	if err == nil && holder != "" && holder != b.UserID {
		return Event{}, ErrSlotTaken
	}

	price := "κατόπιν συνεννόησης"
	if b.Price > 0 {
		price = fmt.Sprintf("%.0f€", b.Price)
	}
	description := strings.Join([]string{
		"Πελάτης: " + b.CustomerName,
		"Τηλέφωνο: " + b.Phone,
		"Περιγραφή: " + b.Description,
		"Εκτιμώμενη τιμή: " + price,
		"Διάρκεια: " + FormatDuration(duration),
		"Instagram ID: " + b.UserID,
	}, "\n")

	created, err := s.backend.Insert(ctx, Event{
		Summary:     "Ραντεβού τατουάζ: " + b.CustomerName,
		Description: description,
		Start:       start,
		End:         start.Add(duration),
	})
	if err != nil {
		return Event{}, fmt.Errorf("calendar: insert booking: %w", err)
	}

	if err := s.holds.Release(ctx, start); err != nil {
		s.log.Warn("could not release hold after booking", sl.Err(err))
	}
	return created, nil
}

// FindByPhone looks for upcoming bookings whose details mention the phone
// number. The search window covers the next 90 days.
func (s *Scheduler) FindByPhone(ctx context.Context, phone string) ([]Event, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrBookingNotFound
	}

	now := s.now().In(s.loc)
	events, err := s.backend.List(ctx, now, now.AddDate(0, 0, 90), "")
	if err != nil {
		return nil, fmt.Errorf("calendar: list bookings: %w", err)
	}

	var matches []Event
	for _, e := range events {
		if strings.Contains(e.Description, phone) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return nil, ErrBookingNotFound
	}
	return matches, nil
}

// Cancel deletes the booking with the given event ID. The ID comes from a
// preceding FindByPhone lookup.
func (s *Scheduler) Cancel(ctx context.Context, eventID string) (Event, error) {
	target, err := s.backend.Get(ctx, eventID)
	if errors.Is(err, ErrBookingNotFound) {
		return Event{}, ErrBookingNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("calendar: load booking: %w", err)
	}
	if err := s.backend.Delete(ctx, target.ID); err != nil {
		return Event{}, fmt.Errorf("calendar: delete booking: %w", err)
	}
	return target, nil
}

// Reschedule moves the booking with the given event ID to a new start time.
// A positive durationHours replaces the session length, otherwise the
// existing duration is kept. A hold on the target slot blocks the move only
// when it belongs to a different user.
func (s *Scheduler) Reschedule(ctx context.Context, eventID string, newStart time.Time, durationHours float64, userID string) (Event, error) {
	target, err := s.backend.Get(ctx, eventID)
	if errors.Is(err, ErrBookingNotFound) {
		return Event{}, ErrBookingNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("calendar: load booking: %w", err)
	}

	duration := target.End.Sub(target.Start)
	if duration <= 0 {
		duration = time.Hour
	}
	if durationHours > 0 {
		duration = time.Duration(durationHours * float64(time.Hour))
		target.Description = rewriteDurationLine(target.Description, duration)
	}
	start := newStart.In(s.loc)

	holder, err := s.holds.Holder(ctx, start)
	if err == nil && holder != "" && holder != userID {
		return Event{}, ErrSlotTaken
	}

	target.Start = start
	target.End = start.Add(duration)
	updated, err := s.backend.Update(ctx, target)
	if err != nil {
		return Event{}, fmt.Errorf("calendar: update booking: %w", err)
	}
	return updated, nil
}

// rewriteDurationLine replaces the duration line of a booking description
// when a reschedule changes the session length.
func rewriteDurationLine(description string, d time.Duration) string {
	lines := strings.Split(description, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "Διάρκεια: ") {
			lines[i] = "Διάρκεια: " + FormatDuration(d)
			return strings.Join(lines, "\n")
		}
	}
	return description
}

// sessionDuration resolves session length: an explicit duration wins, then
// the price-derived estimate, then the one-hour default.
func (s *Scheduler) sessionDuration(hours, price float64) time.Duration {
	if hours > 0 {
		return time.Duration(hours * float64(time.Hour))
	}
	if price > 0 {
		return DurationFromPrice(price)
	}
	return time.Hour
}

// overlaps counts events intersecting the [start, end) window.
func (s *Scheduler) overlaps(events []Event, start, end time.Time) int {
	n := 0
	for _, e := range events {
		if e.Start.Before(end) && e.End.After(start) {
			n++
		}
	}
	return n
}

func parseHour(t string) int {
	var h, m int
	if _, err := fmt.Sscanf(t, "%d:%d", &h, &m); err != nil {
		if _, err := fmt.Sscanf(t, "%d", &h); err != nil {
			return 0
		}
	}
	if h < 0 || h > 23 {
		return 0
	}
	return h
}
