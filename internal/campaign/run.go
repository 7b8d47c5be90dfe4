package campaign

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/praesidio-sec/phishsim/internal/audit"
	"github.com/praesidio-sec/phishsim/internal/domain"
)

// executeRun performs one campaign execution: create the run row,
// resolve targets, then send to each target with isolated failures.
// Per-recipient send errors are counted and the loop continues; only
// run-level failures (targeting, template, storage) fail the run.
func (s *Service) executeRun(ctx context.Context, c *domain.Campaign, population []domain.User) (*domain.CampaignRun, error) {
	run := &domain.CampaignRun{
		ID:         uuid.New().String(),
		CampaignID: c.ID,
		Status:     domain.RunStarted,
		StartedAt:  nowUTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	log.Printf("[Campaign] run %s started for campaign %s", run.ID, c.ID)
	s.audit.Record(ctx, audit.ActionRunStarted, "campaign_run", run.ID, "system", "", c.Name)

	tpl, err := s.templates.Get(ctx, *c.TemplateID)
	if err != nil {
		return run, s.failRun(ctx, run, fmt.Errorf("load template: %w", err))
	}
	if tpl == nil {
		return run, s.failRun(ctx, run, ErrTemplateNotFound)
	}

	already, err := s.recipients.TargetedUserIDs(ctx, c.ID)
	if err != nil {
		return run, s.failRun(ctx, run, fmt.Errorf("load prior recipients: %w", err))
	}

	targets := s.targeting.ComputeTargets(c, population, already)
	run.TargetCount = len(targets)
	run.Status = domain.RunInProgress
	if err := s.runs.Update(ctx, run); err != nil {
		return run, s.failRun(ctx, run, fmt.Errorf("update run: %w", err))
	}

	for _, target := range targets {
		if err := s.sendToTarget(ctx, c, run, tpl, target); err != nil {
			run.ErrorCount++
			log.Printf("[Campaign] run %s: send to %s failed: %v", run.ID, target.ID, err)
		} else {
			run.SentCount++
		}
		if err := s.runs.Update(ctx, run); err != nil {
			return run, s.failRun(ctx, run, fmt.Errorf("update run counters: %w", err))
		}
	}

	run.Status = domain.RunCompleted
	now := nowUTC()
	run.CompletedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		return run, s.failRun(ctx, run, fmt.Errorf("finalize run: %w", err))
	}
	log.Printf("[Campaign] run %s completed: %d/%d sent, %d errors",
		run.ID, run.SentCount, run.TargetCount, run.ErrorCount)
	s.audit.Record(ctx, audit.ActionRunCompleted, "campaign_run", run.ID, "system", "",
		fmt.Sprintf("%d/%d sent, %d errors", run.SentCount, run.TargetCount, run.ErrorCount))
	return run, nil
}

// sendToTarget creates the recipient with a fresh token and hands it to
// delivery. Identity fields are denormalized here, at send time.
func (s *Service) sendToTarget(ctx context.Context, c *domain.Campaign, run *domain.CampaignRun, tpl *domain.Template, target domain.User) error {
	tok, err := s.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	rcpt := &domain.Recipient{
		ID:         uuid.New().String(),
		CampaignID: c.ID,
		RunID:      run.ID,
		UserID:     target.ID,
		Email:      target.Email,
		FirstName:  target.FirstName,
		LastName:   target.LastName,
		Department: target.Department,
		Token:      tok,
		Status:     domain.RecipientPending,
		CreatedAt:  nowUTC(),
	}
	if err := s.recipients.Create(ctx, rcpt); err != nil {
		return fmt.Errorf("create recipient: %w", err)
	}

	return s.deliver.SendEmail(ctx, rcpt, tpl)
}

// failRun records a run-level failure. The campaign status is resolved
// by the caller; here only the run row goes terminal.
func (s *Service) failRun(ctx context.Context, run *domain.CampaignRun, cause error) error {
	run.Status = domain.RunFailed
	run.ErrorMessage = cause.Error()
	now := nowUTC()
	run.CompletedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		log.Printf("[Campaign] run %s failed and could not be recorded: %v", run.ID, err)
	}
	s.audit.Record(ctx, audit.ActionRunFailed, "campaign_run", run.ID, "system", "", cause.Error())
	return cause
}
