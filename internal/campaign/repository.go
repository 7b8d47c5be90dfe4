package campaign

import (
	"context"
	"time"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns campaigns matching the filter, ordered by created_at DESC.
	List(ctx context.Context, filter ListFilter) ([]domain.Campaign, int, error)

	// ListByStatus returns every campaign in the given status. Used by
	// the scheduler tick.
	ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error)

	// Create inserts a new campaign.
	Create(ctx context.Context, c *domain.Campaign) error

	// Update rewrites the mutable campaign fields. The service only
	// calls this for draft campaigns.
	Update(ctx context.Context, c *domain.Campaign) error

	// Delete removes a campaign and its runs/recipients/events.
	Delete(ctx context.Context, id string) error

	// UpdateStatus transitions a campaign's status.
	UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error
}

// RunRepository persists campaign runs.
type RunRepository interface {
	Create(ctx context.Context, run *domain.CampaignRun) error
	// Update rewrites status, counters, completion time, and error text.
	Update(ctx context.Context, run *domain.CampaignRun) error
	ListByCampaign(ctx context.Context, campaignID string) ([]domain.CampaignRun, error)
}

// RecipientRepository is the slice of recipient persistence the
// orchestrator needs.
type RecipientRepository interface {
	Create(ctx context.Context, r *domain.Recipient) error
	TokenExists(ctx context.Context, token string) (bool, error)
	// TargetedUserIDs returns the user ids that already have a recipient
	// record anywhere in this campaign, across all runs.
	TargetedUserIDs(ctx context.Context, campaignID string) (map[string]bool, error)
}

// TemplateSource resolves templates. Returns (nil, nil) for unknown ids.
type TemplateSource interface {
	Get(ctx context.Context, id string) (*domain.Template, error)
}

// Deliverer sends one email per recipient and records the outcome
// against the recipient itself. Errors are informational to the run
// counters; the deliverer has already persisted the failure.
type Deliverer interface {
	SendEmail(ctx context.Context, rcpt *domain.Recipient, tpl *domain.Template) error
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	TargetDepartments []string   `json:"target_departments"`
	TargetRoles       []string   `json:"target_roles"`
	IncludeUserIDs    []string   `json:"include_user_ids"`
	ExcludeUserIDs    []string   `json:"exclude_user_ids"`
	SamplingPercent   *int       `json:"sampling_percent"`
	Frequency         string     `json:"frequency"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	WindowStart       string     `json:"window_start"`
	WindowEnd         string     `json:"window_end"`
	Timezone          string     `json:"timezone"`
	TemplateID        string     `json:"template_id"`
	PrivacyMode       string     `json:"privacy_mode"`
	RetentionDays     int        `json:"retention_days"`
}
