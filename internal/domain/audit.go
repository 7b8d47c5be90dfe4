package domain

import "time"

// AuditEntry records one administrative or lifecycle action. Entries are
// append-only and survive data retention purges.
type AuditEntry struct {
	ID         string    `json:"id" db:"id"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	Actor      string    `json:"actor" db:"actor"`
	ActorIP    string    `json:"actor_ip" db:"actor_ip"`
	Details    string    `json:"details" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
