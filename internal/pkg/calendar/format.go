package calendar

import (
	"fmt"
	"strings"
	"time"
)

var greekDays = map[time.Weekday]string{
	time.Monday:    "Δευτέρα",
	time.Tuesday:   "Τρίτη",
	time.Wednesday: "Τετάρτη",
	time.Thursday:  "Πέμπτη",
	time.Friday:    "Παρασκευή",
	time.Saturday:  "Σάββατο",
	time.Sunday:    "Κυριακή",
}

var greekMonths = map[time.Month]string{
	time.January:   "Ιανουαρίου",
	time.February:  "Φεβρουαρίου",
	time.March:     "Μαρτίου",
	time.April:     "Απριλίου",
	time.May:       "Μαΐου",
	time.June:      "Ιουνίου",
	time.July:      "Ιουλίου",
	time.August:    "Αυγούστου",
	time.September: "Σεπτεμβρίου",
	time.October:   "Οκτωβρίου",
	time.November:  "Νοεμβρίου",
	time.December:  "Δεκεμβρίου",
}

// FormatDate renders a date in Greek, e.g. "Δευτέρα 3 Μαρτίου".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s", greekDays[t.Weekday()], t.Day(), greekMonths[t.Month()])
}

// FormatSlotsMessage renders an availability answer. Slots are grouped per
// day; each day lists the first few times and summarizes the rest.
func FormatSlotsMessage(slots []Slot, shown int) string {
	if len(slots) == 0 {
		return "Δυστυχώς δεν υπάρχουν διαθέσιμες ώρες για αυτές τις ημερομηνίες."
	}

	byDay := make(map[string][]Slot)
	var order []string
	for _, s := range slots {
		if _, ok := byDay[s.Date]; !ok {
			order = append(order, s.Date)
		}
		byDay[s.Date] = append(byDay[s.Date], s)
	}

	var b strings.Builder
	b.WriteString("Διαθέσιμες ώρες:\n")
	for _, day := range order {
		daySlots := byDay[day]
		b.WriteString("\n📅 " + FormatDate(daySlots[0].DateTime) + ":\n")
		n := shown
		if n <= 0 || n > len(daySlots) {
			n = len(daySlots)
		}
		times := make([]string, 0, n)
		for _, s := range daySlots[:n] {
			times = append(times, s.StartTime)
		}
		b.WriteString("   " + strings.Join(times, ", "))
		if rest := len(daySlots) - n; rest > 0 {
			b.WriteString(fmt.Sprintf(" και άλλες %d", rest))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
