package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func toolStatus(t *testing.T, raw string) string {
	t.Helper()
	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("bad tool result %q: %v", raw, err)
	}
	return out.Status
}

func TestToolsCancelByEventID(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	s := newTestScheduler(t, backend, newFakeHolds())
	tools := NewTools(s, s.cfg.Calendar.SuggestedSlots)

	if _, err := s.Book(ctx, Booking{
		Start: day(s, 8, 12), CustomerName: "Μαρία", Phone: "6912345678", UserID: "user-1",
	}); err != nil {
		t.Fatal(err)
	}

	// The model first looks the booking up, then cancels with the ID it
	// got back.
	raw, err := tools.Execute(ctx, "user-1", ToolFindBooking, `{"phone":"6912345678"}`)
	if err != nil {
		t.Fatal(err)
	}
	var found struct {
		Bookings []struct {
			EventID string `json:"event_id"`
		} `json:"bookings"`
	}
	if err := json.Unmarshal([]byte(raw), &found); err != nil || len(found.Bookings) == 0 {
		t.Fatalf("find result %q: %v", raw, err)
	}

	raw, err = tools.Execute(ctx, "user-1", ToolCancelBooking,
		fmt.Sprintf(`{"event_id":%q}`, found.Bookings[0].EventID))
	if err != nil {
		t.Fatal(err)
	}
	if toolStatus(t, raw) != "ok" {
		t.Fatalf("cancel result %q", raw)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != found.Bookings[0].EventID {
		t.Fatalf("deleted %v", backend.deleted)
	}

	raw, err = tools.Execute(ctx, "user-1", ToolCancelBooking, `{"event_id":"no-such-event"}`)
	if err != nil {
		t.Fatal(err)
	}
	if toolStatus(t, raw) != "not_found" {
		t.Fatalf("missing event result %q", raw)
	}
}

func TestToolsRescheduleByEventID(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	s := newTestScheduler(t, backend, newFakeHolds())
	tools := NewTools(s, s.cfg.Calendar.SuggestedSlots)

	booked, err := s.Book(ctx, Booking{
		Start: day(s, 8, 12), CustomerName: "Μαρία", Phone: "6912345678", Price: 200, UserID: "user-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := tools.Execute(ctx, "user-1", ToolRescheduleBooking,
		fmt.Sprintf(`{"event_id":%q,"new_date":"2026-09-09","new_start_time":"15:00","duration_hours":1}`, booked.ID))
	if err != nil {
		t.Fatal(err)
	}
	if toolStatus(t, raw) != "ok" {
		t.Fatalf("reschedule result %q", raw)
	}

	moved, err := backend.Get(ctx, booked.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !moved.Start.Equal(day(s, 9, 15)) {
		t.Fatalf("moved to %v", moved.Start)
	}
	if got := moved.End.Sub(moved.Start); got != time.Hour {
		t.Fatalf("duration %v, want 1h override", got)
	}
}

func TestToolsCreateBookingHonorsDuration(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	s := newTestScheduler(t, backend, newFakeHolds())
	tools := NewTools(s, s.cfg.Calendar.SuggestedSlots)

	raw, err := tools.Execute(ctx, "user-1", ToolCreateBooking,
		`{"date":"2026-09-08","start_time":"12:00","customer_name":"Νίκος","phone":"6912345678","duration_hours":2,"price":250}`)
	if err != nil {
		t.Fatal(err)
	}
	if toolStatus(t, raw) != "ok" {
		t.Fatalf("create result %q", raw)
	}
	if len(backend.events) != 1 {
		t.Fatalf("events %v", backend.events)
	}
	if got := backend.events[0].End.Sub(backend.events[0].Start); got != 2*time.Hour {
		t.Fatalf("duration %v, want the agreed 2h", got)
	}
}
