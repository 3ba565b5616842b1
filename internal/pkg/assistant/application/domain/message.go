package assistant

import "sort"

// QueuedMessage is one raw inbound event buffered in a user's queue while the
// debounce grace window runs. Timestamp is arrival time in unix milliseconds
// and defines batch order regardless of store-level insertion order.
type QueuedMessage struct {
	Timestamp int64     `json:"timestamp"`
	Data      Messaging `json:"data"`
	HasImage  bool      `json:"has_image"`
}

// SortMessages orders a drained batch by arrival time, oldest first. The sort
// is stable so same-millisecond events keep their insertion order.
func SortMessages(msgs []QueuedMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}
