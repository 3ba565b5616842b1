package assistant

import (
	"sort"
	"time"
)

// Intent labels produced by the classifier.
const (
	IntentPricing    = "pricing"
	IntentBooking    = "booking_request"
	IntentStudioInfo = "studio_information"
	IntentFollowUp   = "follow_up"
	IntentOther      = "other"
)

// Booking subcategories.
const (
	SubNewAppointment = "new_appointment"
	SubProvideDetails = "provide_details"
	SubReschedule     = "reschedule_appointment"
	SubCancel         = "cancel_appointment"
	SubAvailableSlots = "available_slots"
)

// Pricing subcategories.
const (
	SubQuoteWithImage = "new_quote_image"
	SubQuoteNoImage   = "new_quote_no_image"
)

// Intent is one ranked label from the classifier. Dates come back in the
// user's DD/MM/YYYY writing for the available_slots subcategory.
type Intent struct {
	Primary     string  `json:"primary"`
	Confidence  float64 `json:"confidence"`
	Subcategory string  `json:"subcategory,omitempty"`
	StartDate   string  `json:"start_date,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
}

// Classification is the classifier's JSON response envelope.
type Classification struct {
	Intents []Intent `json:"intents"`
}

// intentPriority orders intents for reply branching; lower is more important.
var intentPriority = map[string]int{
	IntentPricing:    1,
	IntentBooking:    2,
	IntentStudioInfo: 3,
	IntentFollowUp:   4,
	IntentOther:      5,
}

// SortIntents orders intents by business priority, then descending confidence.
func SortIntents(intents []Intent) []Intent {
	sorted := make([]Intent, len(intents))
	copy(sorted, intents)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, ok := intentPriority[sorted[i].Primary]
		if !ok {
			pi = 999
		}
		pj, ok := intentPriority[sorted[j].Primary]
		if !ok {
			pj = 999
		}
		if pi != pj {
			return pi < pj
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted
}

// PromoteAvailableSlots moves an available_slots question to the front of the
// ranked intents and normalizes its dates to YYYY-MM-DD. A customer asking for
// open hours gets the calendar answer even when a higher-priority intent rides
// along in the same batch.
func PromoteAvailableSlots(intents []Intent) []Intent {
	for i, intent := range intents {
		if intent.Subcategory != SubAvailableSlots {
			continue
		}
		intent.Primary = IntentBooking
		intent.StartDate = isoDate(intent.StartDate)
		intent.EndDate = isoDate(intent.EndDate)
		promoted := make([]Intent, 0, len(intents))
		promoted = append(promoted, intent)
		promoted = append(promoted, intents[:i]...)
		promoted = append(promoted, intents[i+1:]...)
		return promoted
	}
	return intents
}

// isoDate converts the DD/MM/YYYY form customers type to YYYY-MM-DD, leaving
// anything else untouched.
func isoDate(s string) string {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}
