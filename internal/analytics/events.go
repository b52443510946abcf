package analytics

import "time"

type EventType string

const (
	EventLookupHit  EventType = "lookup_hit"
	EventLookupMiss EventType = "lookup_miss"
)

// LookupEvent describes one query against the rank table. Op is "rank" for
// domain-to-rank lookups and "domain" for rank-to-domain lookups.
type LookupEvent struct {
	Type      EventType `json:"type"`
	Op        string    `json:"op"`
	Input     string    `json:"input"`
	Domain    string    `json:"domain,omitempty"`
	Rank      int       `json:"rank,omitempty"`
	Found     bool      `json:"found"`
	LatencyUs int64     `json:"latency_us"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
