// Package campaign owns the campaign lifecycle state machine and drives
// run execution: targeting, token assignment, and delivery.
package campaign

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/praesidio-sec/phishsim/internal/audit"
	"github.com/praesidio-sec/phishsim/internal/domain"
	"github.com/praesidio-sec/phishsim/internal/targeting"
	"github.com/praesidio-sec/phishsim/internal/token"
)

// Actor identifies who performs an administrative action, for auditing.
type Actor struct {
	Name string
	IP   string
}

// Service implements campaign business logic. All public methods are
// safe for concurrent use if the underlying repositories are.
type Service struct {
	repo       Repository
	runs       RunRepository
	recipients RecipientRepository
	templates  TemplateSource
	deliver    Deliverer
	targeting  *targeting.Engine
	tokens     *token.Generator
	audit      *audit.Logger
}

// NewService wires the orchestrator. The token generator should be
// backed by the recipient store's uniqueness check.
func NewService(repo Repository, runs RunRepository, recipients RecipientRepository,
	templates TemplateSource, deliver Deliverer, targetEngine *targeting.Engine,
	tokens *token.Generator, auditLog *audit.Logger) *Service {
	return &Service{
		repo:       repo,
		runs:       runs,
		recipients: recipients,
		templates:  templates,
		deliver:    deliver,
		targeting:  targetEngine,
		tokens:     tokens,
		audit:      auditLog,
	}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Campaign, int, error) {
	return s.repo.List(ctx, f)
}

// Runs returns the execution history of a campaign.
func (s *Service) Runs(ctx context.Context, campaignID string) ([]domain.CampaignRun, error) {
	if _, err := s.repo.Get(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.runs.ListByCampaign(ctx, campaignID)
}

// Create validates and persists a new campaign in draft status.
func (s *Service) Create(ctx context.Context, input CreateInput, actor Actor) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrBusinessRule)
	}

	c := &domain.Campaign{
		ID:                uuid.New().String(),
		Name:              input.Name,
		Description:       input.Description,
		TargetDepartments: input.TargetDepartments,
		TargetRoles:       input.TargetRoles,
		IncludeUserIDs:    input.IncludeUserIDs,
		ExcludeUserIDs:    input.ExcludeUserIDs,
		SamplingPercent:   100,
		Frequency:         domain.FrequencyOnce,
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
		WindowStart:       input.WindowStart,
		WindowEnd:         input.WindowEnd,
		Timezone:          "UTC",
		PrivacyMode:       domain.PrivacyAnonymized,
		RetentionDays:     input.RetentionDays,
		Status:            domain.CampaignDraft,
		CreatedBy:         actor.Name,
	}
	if input.SamplingPercent != nil {
		if *input.SamplingPercent < 0 || *input.SamplingPercent > 100 {
			return nil, fmt.Errorf("%w: sampling percent must be 0-100", domain.ErrBusinessRule)
		}
		c.SamplingPercent = *input.SamplingPercent
	}
	if input.Frequency != "" {
		c.Frequency = domain.Frequency(input.Frequency)
	}
	if input.Timezone != "" {
		c.Timezone = input.Timezone
	}
	if input.PrivacyMode != "" {
		c.PrivacyMode = domain.PrivacyMode(input.PrivacyMode)
	}
	if input.TemplateID != "" {
		if err := s.requireTemplate(ctx, input.TemplateID); err != nil {
			return nil, err
		}
		c.TemplateID = &input.TemplateID
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.ActionCampaignCreated, "campaign", c.ID, actor.Name, actor.IP, c.Name)
	return c, nil
}

// Update rewrites a draft campaign's configuration. Non-draft campaigns
// are immutable.
func (s *Service) Update(ctx context.Context, id string, input CreateInput, actor Actor) (*domain.Campaign, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignDraft {
		return nil, ErrNotEditable
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrBusinessRule)
	}

	c.Name = input.Name
	c.Description = input.Description
	c.TargetDepartments = input.TargetDepartments
	c.TargetRoles = input.TargetRoles
	c.IncludeUserIDs = input.IncludeUserIDs
	c.ExcludeUserIDs = input.ExcludeUserIDs
	c.StartDate = input.StartDate
	c.EndDate = input.EndDate
	c.WindowStart = input.WindowStart
	c.WindowEnd = input.WindowEnd
	c.RetentionDays = input.RetentionDays
	if input.SamplingPercent != nil {
		if *input.SamplingPercent < 0 || *input.SamplingPercent > 100 {
			return nil, fmt.Errorf("%w: sampling percent must be 0-100", domain.ErrBusinessRule)
		}
		c.SamplingPercent = *input.SamplingPercent
	}
	if input.Frequency != "" {
		c.Frequency = domain.Frequency(input.Frequency)
	}
	if input.Timezone != "" {
		c.Timezone = input.Timezone
	}
	if input.PrivacyMode != "" {
		c.PrivacyMode = domain.PrivacyMode(input.PrivacyMode)
	}
	c.TemplateID = nil
	if input.TemplateID != "" {
		if err := s.requireTemplate(ctx, input.TemplateID); err != nil {
			return nil, err
		}
		c.TemplateID = &input.TemplateID
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.ActionCampaignUpdated, "campaign", c.ID, actor.Name, actor.IP, c.Name)
	return c, nil
}

// Delete removes a campaign. Running campaigns cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string, actor Actor) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == domain.CampaignRunning {
		return ErrDeleteRunning
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.ActionCampaignDeleted, "campaign", id, actor.Name, actor.IP, c.Name)
	return nil
}

// Schedule transitions DRAFT -> SCHEDULED. A template must be assigned.
func (s *Service) Schedule(ctx context.Context, id string, actor Actor) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != domain.CampaignDraft {
		return ErrInvalidTransition
	}
	if c.TemplateID == nil {
		return ErrTemplateRequired
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.CampaignScheduled); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.ActionCampaignScheduled, "campaign", id, actor.Name, actor.IP, c.Name)
	return nil
}

// Pause transitions RUNNING or SCHEDULED -> PAUSED.
func (s *Service) Pause(ctx context.Context, id string, actor Actor) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != domain.CampaignRunning && c.Status != domain.CampaignScheduled {
		return ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.CampaignPaused); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.ActionCampaignPaused, "campaign", id, actor.Name, actor.IP, c.Name)
	return nil
}

// Resume transitions PAUSED -> SCHEDULED.
func (s *Service) Resume(ctx context.Context, id string, actor Actor) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != domain.CampaignPaused {
		return ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.CampaignScheduled); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.ActionCampaignResumed, "campaign", id, actor.Name, actor.IP, c.Name)
	return nil
}

// Stop force-completes any non-terminal campaign.
func (s *Service) Stop(ctx context.Context, id string, actor Actor) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsTerminal() {
		return ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.CampaignCompleted); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.ActionCampaignStopped, "campaign", id, actor.Name, actor.IP, c.Name)
	return nil
}

// RunNow triggers a synchronous run with an explicitly supplied
// candidate population. The engine never sources users itself.
func (s *Service) RunNow(ctx context.Context, id string, population []domain.User, actor Actor) (*domain.CampaignRun, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.CampaignRunning {
		return nil, ErrAlreadyRunning
	}
	if c.IsTerminal() {
		return nil, ErrInvalidTransition
	}
	if c.TemplateID == nil {
		return nil, ErrTemplateRequired
	}

	s.audit.Record(ctx, audit.ActionCampaignRunNow, "campaign", id, actor.Name, actor.IP, c.Name)
	return s.execute(ctx, c, population, c.Status)
}

// ExecuteScheduled runs a SCHEDULED campaign on behalf of the scheduler.
func (s *Service) ExecuteScheduled(ctx context.Context, c *domain.Campaign, population []domain.User) (*domain.CampaignRun, error) {
	if c.TemplateID == nil {
		return nil, ErrTemplateRequired
	}
	return s.execute(ctx, c, population, domain.CampaignScheduled)
}

// execute flips the campaign to RUNNING, performs the run, and resolves
// the campaign to a valid non-stuck status regardless of outcome:
// ONCE completes, recurring campaigns return to SCHEDULED, and a manual
// run from DRAFT leaves the draft untouched.
func (s *Service) execute(ctx context.Context, c *domain.Campaign, population []domain.User, prev domain.CampaignStatus) (*domain.CampaignRun, error) {
	if err := s.repo.UpdateStatus(ctx, c.ID, domain.CampaignRunning); err != nil {
		return nil, err
	}

	run, runErr := s.executeRun(ctx, c, population)

	next := domain.CampaignScheduled
	switch {
	case runErr == nil && c.Frequency == domain.FrequencyOnce:
		next = domain.CampaignCompleted
	case prev == domain.CampaignDraft:
		next = domain.CampaignDraft
	}
	if err := s.repo.UpdateStatus(ctx, c.ID, next); err != nil {
		log.Printf("[Campaign] %s stuck leaving RUNNING: %v", c.ID, err)
	}

	if runErr != nil {
		return run, runErr
	}
	return run, nil
}

func (s *Service) requireTemplate(ctx context.Context, id string) error {
	tpl, err := s.templates.Get(ctx, id)
	if err != nil {
		return err
	}
	if tpl == nil {
		return ErrTemplateNotFound
	}
	return nil
}

// EstimateTargets approximates the target count for UI display.
func (s *Service) EstimateTargets(ctx context.Context, id string, totalPopulation int) (int, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return targeting.EstimateTargetCount(c, totalPopulation), nil
}

// nowUTC is separated for test override.
var nowUTC = func() time.Time { return time.Now().UTC() }
