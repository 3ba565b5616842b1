package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	llmport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/llm/port"
)

// Tool names exposed to the model.
const (
	ToolCheckAvailability = "check_calendar_availability"
	ToolCreateBooking     = "create_tattoo_booking"
	ToolFindBooking       = "find_customer_booking"
	ToolCancelBooking     = "cancel_tattoo_booking"
	ToolRescheduleBooking = "reschedule_tattoo_booking"
)

// Tools binds the scheduler to the model's function-calling protocol.
type Tools struct {
	scheduler *Scheduler
	shown     int
}

func NewTools(scheduler *Scheduler, shownSlots int) *Tools {
	return &Tools{scheduler: scheduler, shown: shownSlots}
}

// Definitions returns the tool schemas sent with every completion request.
func (t *Tools) Definitions() []llmport.Tool {
	return []llmport.Tool{
		{
			Name:        ToolCheckAvailability,
			Description: "Ελέγχει διαθέσιμες ώρες για ραντεβού τατουάζ στο ημερολόγιο του studio.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start_date":     map[string]any{"type": "string", "description": "Ημερομηνία έναρξης αναζήτησης, μορφή YYYY-MM-DD"},
					"end_date":       map[string]any{"type": "string", "description": "Ημερομηνία λήξης αναζήτησης, μορφή YYYY-MM-DD"},
					"duration_hours": map[string]any{"type": "number", "description": "Διάρκεια ραντεβού σε ώρες"},
					"tattoo_price":   map[string]any{"type": "number", "description": "Εκτιμώμενη τιμή τατουάζ σε ευρώ"},
					"preferred_time": map[string]any{"type": "string", "description": "Προτιμώμενη ώρα, μορφή HH:MM"},
				},
				"required": []string{"start_date", "end_date"},
			},
		},
		{
			Name:        ToolCreateBooking,
			Description: "Δημιουργεί ραντεβού τατουάζ αφού ο πελάτης έχει δώσει όνομα και τηλέφωνο.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date":               map[string]any{"type": "string", "description": "Ημερομηνία ραντεβού, μορφή YYYY-MM-DD"},
					"start_time":         map[string]any{"type": "string", "description": "Ώρα έναρξης, μορφή HH:MM"},
					"customer_name":      map[string]any{"type": "string", "description": "Ονοματεπώνυμο πελάτη"},
					"phone":              map[string]any{"type": "string", "description": "Τηλέφωνο πελάτη"},
					"tattoo_description": map[string]any{"type": "string", "description": "Περιγραφή του τατουάζ"},
					"duration_hours":     map[string]any{"type": "number", "description": "Διάρκεια ραντεβού σε ώρες, αν έχει συμφωνηθεί"},
					"price":              map[string]any{"type": "number", "description": "Συμφωνημένη τιμή σε ευρώ"},
				},
				"required": []string{"date", "start_time", "customer_name", "phone"},
			},
		},
		{
			Name:        ToolFindBooking,
			Description: "Βρίσκει υπάρχον ραντεβού πελάτη με βάση το τηλέφωνό του.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"phone": map[string]any{"type": "string", "description": "Τηλέφωνο πελάτη"},
				},
				"required": []string{"phone"},
			},
		},
		{
			Name:        ToolCancelBooking,
			Description: "Ακυρώνει ραντεβού. Το event_id προκύπτει από το find_customer_booking.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"event_id": map[string]any{"type": "string", "description": "Αναγνωριστικό ραντεβού από το find_customer_booking"},
				},
				"required": []string{"event_id"},
			},
		},
		{
			Name:        ToolRescheduleBooking,
			Description: "Μεταφέρει υπάρχον ραντεβού σε νέα ημερομηνία και ώρα. Το event_id προκύπτει από το find_customer_booking.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"event_id":       map[string]any{"type": "string", "description": "Αναγνωριστικό ραντεβού από το find_customer_booking"},
					"new_date":       map[string]any{"type": "string", "description": "Νέα ημερομηνία, μορφή YYYY-MM-DD"},
					"new_start_time": map[string]any{"type": "string", "description": "Νέα ώρα έναρξης, μορφή HH:MM"},
					"duration_hours": map[string]any{"type": "number", "description": "Νέα διάρκεια σε ώρες, μόνο αν αλλάζει"},
				},
				"required": []string{"event_id", "new_date", "new_start_time"},
			},
		},
	}
}

// Execute runs a named tool with JSON arguments on behalf of a user and
// returns the result as JSON for the follow-up completion.
func (t *Tools) Execute(ctx context.Context, userID, name, argsJSON string) (string, error) {
	switch name {
	case ToolCheckAvailability:
		return t.checkAvailability(ctx, userID, argsJSON)
	case ToolCreateBooking:
		return t.createBooking(ctx, userID, argsJSON)
	case ToolFindBooking:
		return t.findBooking(ctx, argsJSON)
	case ToolCancelBooking:
		return t.cancelBooking(ctx, argsJSON)
	case ToolRescheduleBooking:
		return t.rescheduleBooking(ctx, userID, argsJSON)
	default:
		return "", fmt.Errorf("calendar: unknown tool %q", name)
	}
}

func (t *Tools) checkAvailability(ctx context.Context, userID, argsJSON string) (string, error) {
	var args struct {
		StartDate     string  `json:"start_date"`
		EndDate       string  `json:"end_date"`
		DurationHours float64 `json:"duration_hours"`
		TattooPrice   float64 `json:"tattoo_price"`
		PreferredTime string  `json:"preferred_time"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("calendar: decode availability args: %w", err)
	}

	start, err := parseDate(args.StartDate, t.scheduler.loc)
	if err != nil {
		return toolResult(map[string]any{"status": "error", "message": "Μη έγκυρη ημερομηνία έναρξης."})
	}
	end, err := parseDate(args.EndDate, t.scheduler.loc)
	if err != nil {
		end = start
	}

	slots, err := t.scheduler.Search(ctx, SearchQuery{
		StartDate:     start,
		EndDate:       end,
		DurationHours: args.DurationHours,
		TattooPrice:   args.TattooPrice,
		UserID:        userID,
		PreferredTime: args.PreferredTime,
	})
	if err != nil {
		return "", err
	}

	return toolResult(map[string]any{
		"status":    "ok",
		"slots":     slots,
		"formatted": FormatSlotsMessage(slots, t.shown),
	})
}

func (t *Tools) createBooking(ctx context.Context, userID, argsJSON string) (string, error) {
	var args struct {
		Date          string  `json:"date"`
		StartTime     string  `json:"start_time"`
		CustomerName  string  `json:"customer_name"`
		Phone         string  `json:"phone"`
		Description   string  `json:"tattoo_description"`
		DurationHours float64 `json:"duration_hours"`
		Price         float64 `json:"price"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("calendar: decode booking args: %w", err)
	}

	start, err := parseDateTime(args.Date, args.StartTime, t.scheduler.loc)
	if err != nil {
		return toolResult(map[string]any{"status": "error", "message": "Μη έγκυρη ημερομηνία ή ώρα ραντεβού."})
	}

	event, err := t.scheduler.Book(ctx, Booking{
		Start:         start,
		CustomerName:  args.CustomerName,
		Phone:         args.Phone,
		Description:   args.Description,
		DurationHours: args.DurationHours,
		Price:         args.Price,
		UserID:        userID,
	})
	if errors.Is(err, ErrSlotTaken) {
		return toolResult(map[string]any{"status": "error", "message": "Η ώρα μόλις κλείστηκε από άλλον πελάτη. Διάλεξε άλλη ώρα."})
	}
	if err != nil {
		return "", err
	}

	return toolResult(map[string]any{
		"status":   "ok",
		"message":  fmt.Sprintf("Το ραντεβού επιβεβαιώθηκε για %s στις %s.", FormatDate(event.Start), event.Start.Format("15:04")),
		"event_id": event.ID,
	})
}

func (t *Tools) findBooking(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("calendar: decode find args: %w", err)
	}

	matches, err := t.scheduler.FindByPhone(ctx, args.Phone)
	if errors.Is(err, ErrBookingNotFound) {
		return toolResult(map[string]any{"status": "not_found", "message": "Δεν βρέθηκε ραντεβού με αυτό το τηλέφωνο."})
	}
	if err != nil {
		return "", err
	}

	bookings := make([]map[string]any, 0, len(matches))
	for _, e := range matches {
		bookings = append(bookings, map[string]any{
			"event_id": e.ID,
			"date":     FormatDate(e.Start),
			"time":     e.Start.Format("15:04"),
			"summary":  e.Summary,
		})
	}
	return toolResult(map[string]any{"status": "ok", "bookings": bookings})
}

func (t *Tools) cancelBooking(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("calendar: decode cancel args: %w", err)
	}

	event, err := t.scheduler.Cancel(ctx, args.EventID)
	if errors.Is(err, ErrBookingNotFound) {
		return toolResult(map[string]any{"status": "not_found", "message": "Δεν βρέθηκε το ραντεβού. Χρειάζεται πρώτα αναζήτηση με το τηλέφωνο του πελάτη."})
	}
	if err != nil {
		return "", err
	}
	return toolResult(map[string]any{
		"status":  "ok",
		"message": fmt.Sprintf("Το ραντεβού της %s στις %s ακυρώθηκε.", FormatDate(event.Start), event.Start.Format("15:04")),
	})
}

func (t *Tools) rescheduleBooking(ctx context.Context, userID, argsJSON string) (string, error) {
	var args struct {
		EventID       string  `json:"event_id"`
		NewDate       string  `json:"new_date"`
		NewStartTime  string  `json:"new_start_time"`
		DurationHours float64 `json:"duration_hours"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("calendar: decode reschedule args: %w", err)
	}

	start, err := parseDateTime(args.NewDate, args.NewStartTime, t.scheduler.loc)
	if err != nil {
		return toolResult(map[string]any{"status": "error", "message": "Μη έγκυρη νέα ημερομηνία ή ώρα."})
	}

	event, err := t.scheduler.Reschedule(ctx, args.EventID, start, args.DurationHours, userID)
	switch {
	case errors.Is(err, ErrBookingNotFound):
		return toolResult(map[string]any{"status": "not_found", "message": "Δεν βρέθηκε το ραντεβού. Χρειάζεται πρώτα αναζήτηση με το τηλέφωνο του πελάτη."})
	case errors.Is(err, ErrSlotTaken):
		return toolResult(map[string]any{"status": "error", "message": "Η νέα ώρα είναι δεσμευμένη. Διάλεξε άλλη ώρα."})
	case err != nil:
		return "", err
	}
	return toolResult(map[string]any{
		"status":  "ok",
		"message": fmt.Sprintf("Το ραντεβού μεταφέρθηκε για %s στις %s.", FormatDate(event.Start), event.Start.Format("15:04")),
	})
}

func toolResult(v map[string]any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("calendar: encode tool result: %w", err)
	}
	return string(raw), nil
}

// parseDate accepts YYYY-MM-DD and the DD/MM/YYYY form customers type.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation("02/01/2006", s, loc)
}

func parseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := parseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(clock), "%d:%d", &h, &m); err != nil {
		return time.Time{}, fmt.Errorf("calendar: bad time %q", clock)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return time.Time{}, fmt.Errorf("calendar: bad time %q", clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc), nil
}
