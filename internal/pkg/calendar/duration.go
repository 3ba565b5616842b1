package calendar

import (
	"fmt"
	"math"
	"time"
)

// DurationFromPrice estimates session length from the quoted price at the
// studio's hourly rate, rounded up to the next 5 minutes. A non-positive
// price falls back to one hour.
func DurationFromPrice(price float64) time.Duration {
	if price <= 0 {
		return time.Hour
	}
	hours := price / 100.0
	minutes := int(math.Ceil(hours*60.0/5.0)) * 5
	if minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

// FormatDuration renders a duration in Greek, e.g. "1 ώρα και 30 λεπτά".
func FormatDuration(d time.Duration) string {
	total := int(d.Minutes())
	hours := total / 60
	mins := total % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("%d λεπτά", mins)
	case mins == 0 && hours == 1:
		return "1 ώρα"
	case mins == 0:
		return fmt.Sprintf("%d ώρες", hours)
	case hours == 1:
		return fmt.Sprintf("1 ώρα και %d λεπτά", mins)
	default:
		return fmt.Sprintf("%d ώρες και %d λεπτά", hours, mins)
	}
}
