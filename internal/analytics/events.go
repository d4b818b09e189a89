package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// SearchEvent describes one completed search
type SearchEvent struct {
	Type        EventType `json:"type"`
	RequestID   string    `json:"request_id,omitempty"`
	Query       string    `json:"query"`
	Mode        string    `json:"mode"`
	ListingType string    `json:"listing_type"`
	Total       int       `json:"total"`
	Scored      bool      `json:"scored"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// Key partitions events by query so repeats land on the same partition
func (e SearchEvent) Key() string {
	return e.Query
}
