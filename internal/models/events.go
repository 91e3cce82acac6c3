package models

import "time"

// Event types
const (
	EventTypeDealUpserted        = "DEAL_UPSERTED"
	EventTypeFeedRunCompleted    = "FEED_RUN_COMPLETED"
	EventTypeFeedUpdateRequested = "FEED_UPDATE_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// DealUpsertedEvent published for every product persisted by a feed run
type DealUpsertedEvent struct {
	BaseEvent
	AwinID   int64   `json:"awin_id"`
	Brand    string  `json:"brand"`
	Name     string  `json:"name"`
	Retailer string  `json:"retailer"`
	Price    float64 `json:"price"`
	Discount int     `json:"discount"`
	URL      string  `json:"url"`
}

// FeedRunCompletedEvent published when a feed run finishes
type FeedRunCompletedEvent struct {
	BaseEvent
	Status     string `json:"status"`
	Brands     int    `json:"brands"`
	Parsed     int    `json:"parsed"`
	Malformed  int    `json:"malformed"`
	Accepted   int    `json:"accepted"`
	Persisted  int    `json:"persisted"`
	FetchError string `json:"fetch_error,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// FeedUpdateRequestedEvent asks the service to run a feed update
type FeedUpdateRequestedEvent struct {
	BaseEvent
	RequestedBy string `json:"requested_by,omitempty"`
}
