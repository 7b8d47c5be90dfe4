package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a phishing campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignScheduled CampaignStatus = "SCHEDULED"
	CampaignRunning   CampaignStatus = "RUNNING"
	CampaignPaused    CampaignStatus = "PAUSED"
	CampaignCompleted CampaignStatus = "COMPLETED"
	CampaignCancelled CampaignStatus = "CANCELLED"
)

// Frequency enumerates how often a scheduled campaign recurs.
type Frequency string

const (
	FrequencyOnce    Frequency = "ONCE"
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// PrivacyMode controls whether per-user reporting identifies people.
type PrivacyMode string

const (
	PrivacyAnonymized PrivacyMode = "ANONYMIZED"
	PrivacyIdentified PrivacyMode = "IDENTIFIED"
)

// Campaign represents one phishing-simulation exercise: who to target,
// when to send, and which template to use.
type Campaign struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`

	// Targeting rules, resolved by the targeting engine against a
	// caller-supplied population.
	TargetDepartments []string `json:"target_departments" db:"target_departments"`
	TargetRoles       []string `json:"target_roles" db:"target_roles"`
	IncludeUserIDs    []string `json:"include_user_ids" db:"include_user_ids"`
	ExcludeUserIDs    []string `json:"exclude_user_ids" db:"exclude_user_ids"`
	SamplingPercent   int      `json:"sampling_percent" db:"sampling_percent"`

	Frequency   Frequency  `json:"frequency" db:"frequency"`
	StartDate   *time.Time `json:"start_date" db:"start_date"`
	EndDate     *time.Time `json:"end_date" db:"end_date"`
	WindowStart string     `json:"window_start" db:"window_start"` // "HH:MM", empty = no window
	WindowEnd   string     `json:"window_end" db:"window_end"`
	Timezone    string     `json:"timezone" db:"timezone"`

	TemplateID    *string        `json:"template_id" db:"template_id"`
	PrivacyMode   PrivacyMode    `json:"privacy_mode" db:"privacy_mode"`
	RetentionDays int            `json:"retention_days" db:"retention_days"`
	Status        CampaignStatus `json:"status" db:"status"`

	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignCancelled
}

// RunStatus enumerates the lifecycle of a single campaign execution.
type RunStatus string

const (
	RunStarted    RunStatus = "STARTED"
	RunInProgress RunStatus = "IN_PROGRESS"
	RunCompleted  RunStatus = "COMPLETED"
	RunFailed     RunStatus = "FAILED"
	RunCancelled  RunStatus = "CANCELLED"
)

// CampaignRun is one execution attempt of a campaign. Counters are
// incremented while the run is in progress and frozen on completion.
type CampaignRun struct {
	ID           string     `json:"id" db:"id"`
	CampaignID   string     `json:"campaign_id" db:"campaign_id"`
	Status       RunStatus  `json:"status" db:"status"`
	TargetCount  int        `json:"target_count" db:"target_count"`
	SentCount    int        `json:"sent_count" db:"sent_count"`
	ErrorCount   int        `json:"error_count" db:"error_count"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at" db:"completed_at"`
}
