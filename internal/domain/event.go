package domain

import "time"

// EventType enumerates recipient interactions.
type EventType string

const (
	EventDelivered     EventType = "DELIVERED"
	EventOpened        EventType = "OPENED"
	EventClicked       EventType = "CLICKED"
	EventDataSubmitted EventType = "DATA_SUBMITTED"
	EventReported      EventType = "REPORTED"
)

// IdempotentEvent reports whether the event type is recorded at most once
// per token. CLICKED is exempt: every click is a training signal.
func IdempotentEvent(t EventType) bool {
	return t == EventOpened || t == EventDataSubmitted || t == EventReported
}

// Event is an append-only fact about one recipient interaction. Metadata
// must never contain submitted form contents.
type Event struct {
	ID          string    `json:"id" db:"id"`
	CampaignID  string    `json:"campaign_id" db:"campaign_id"`
	RunID       string    `json:"run_id" db:"run_id"`
	RecipientID string    `json:"recipient_id" db:"recipient_id"`
	Token       string    `json:"-" db:"token"`
	Type        EventType `json:"type" db:"event_type"`
	LinkID      string    `json:"link_id,omitempty" db:"link_id"`
	IP          string    `json:"ip" db:"ip"`
	UserAgent   string    `json:"user_agent" db:"user_agent"`
	Metadata    string    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
