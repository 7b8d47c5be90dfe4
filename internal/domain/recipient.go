package domain

import "time"

// RecipientStatus enumerates the delivery state of one targeted person.
type RecipientStatus string

const (
	RecipientPending   RecipientStatus = "PENDING"
	RecipientSending   RecipientStatus = "SENDING"
	RecipientSent      RecipientStatus = "SENT"
	RecipientDelivered RecipientStatus = "DELIVERED"
	RecipientFailed    RecipientStatus = "FAILED"
	RecipientBounced   RecipientStatus = "BOUNCED"
)

// Recipient is one targeted person within one campaign run. Identity
// fields are denormalized at send time so later directory changes do not
// rewrite history. The token is the only external handle.
type Recipient struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`
	RunID      string `json:"run_id" db:"run_id"`
	UserID     string `json:"user_id" db:"user_id"`

	Email      string `json:"email" db:"email"`
	FirstName  string `json:"first_name" db:"first_name"`
	LastName   string `json:"last_name" db:"last_name"`
	Department string `json:"department" db:"department"`

	Token        string          `json:"-" db:"token"`
	Status       RecipientStatus `json:"status" db:"status"`
	RetryCount   int             `json:"retry_count" db:"retry_count"`
	ErrorMessage string          `json:"error_message,omitempty" db:"error_message"`
	SentAt       *time.Time      `json:"sent_at" db:"sent_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// User is a member of the candidate population supplied by the directory
// collaborator. The engine never sources users itself.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Department string `json:"department"`
	Role       string `json:"role"`
}
