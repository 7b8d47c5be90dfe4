package domain

import "time"

// Template holds the deceptive email content and the landing page served
// on click. LinkIDs name the tracked links referenced from the body as
// {{link:id}} markers.
type Template struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Subject     string    `json:"subject" db:"subject"`
	HTMLBody    string    `json:"html_body" db:"html_body"`
	LandingPage string    `json:"landing_page" db:"landing_page"`
	LinkIDs     []string  `json:"link_ids" db:"link_ids"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
