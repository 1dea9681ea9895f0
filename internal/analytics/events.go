package analytics

import "time"

type EventType string

const (
	EventQuery        EventType = "query"
	EventZeroMatch    EventType = "zero_match"
	EventInvalidQuery EventType = "invalid_query"
)

// QueryEvent describes one query served by the searcher.
type QueryEvent struct {
	Type          EventType `json:"type"`
	Query         string    `json:"query"`
	Terms         []string  `json:"terms"`
	Matches       int       `json:"matches"`
	LatencyMicros int64     `json:"latency_us"`
	CacheHit      bool      `json:"cache_hit"`
	Fingerprint   string    `json:"fingerprint"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
}

// TypeFor classifies a successfully evaluated query by its match count.
func TypeFor(matches int) EventType {
	if matches == 0 {
		return EventZeroMatch
	}
	return EventQuery
}
