package calendar

import (
	"context"
	"time"
)

// Event is a booking on the studio calendar. Description carries the
// customer details block written at booking time.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Backend abstracts the remote calendar provider.
type Backend interface {
	List(ctx context.Context, from, to time.Time, query string) ([]Event, error)
	Insert(ctx context.Context, e Event) (Event, error)
	Get(ctx context.Context, id string) (Event, error)
	Update(ctx context.Context, e Event) (Event, error)
	Delete(ctx context.Context, id string) error
}

// HoldStore arbitrates short-lived slot claims between concurrent
// conversations. A hold names the user it was placed for.
type HoldStore interface {
	Hold(ctx context.Context, start time.Time, userID string) error
	Holder(ctx context.Context, start time.Time) (string, error)
	Release(ctx context.Context, start time.Time) error
}

// Slot is one bookable opening.
type Slot struct {
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	DateTime  time.Time `json:"-"`
}

// SearchQuery describes an availability search. Dates are inclusive.
// TattooPrice, when positive, derives the session duration.
type SearchQuery struct {
	StartDate     time.Time
	EndDate       time.Time
	DurationHours float64
	TattooPrice   float64
	UserID        string
	PreferredTime string
}
