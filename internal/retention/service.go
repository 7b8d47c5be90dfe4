// Package retention purges raw events and recipients past a campaign's
// retention horizon. Rollups and audit entries are the historical
// record and are never touched.
package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/praesidio-sec/phishsim/internal/audit"
	"github.com/praesidio-sec/phishsim/internal/domain"
)

// CampaignSource lists campaigns for the purge pass.
type CampaignSource interface {
	All(ctx context.Context) ([]domain.Campaign, error)
}

// Purger bulk-deletes raw rows older than the cutoff, returning the
// number of rows removed.
type Purger interface {
	DeleteEventsBefore(ctx context.Context, campaignID string, cutoff time.Time) (int64, error)
	DeleteRecipientsBefore(ctx context.Context, campaignID string, cutoff time.Time) (int64, error)
}

// Service applies per-campaign retention.
type Service struct {
	campaigns CampaignSource
	purger    Purger
	audit     *audit.Logger
	now       func() time.Time
}

func NewService(campaigns CampaignSource, purger Purger, auditLog *audit.Logger) *Service {
	return &Service{
		campaigns: campaigns,
		purger:    purger,
		audit:     auditLog,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// PurgeExpired deletes raw data older than each campaign's retention
// window. Campaigns without a positive retention setting keep data
// indefinitely. Events go first so no event can outlive its recipient.
func (s *Service) PurgeExpired(ctx context.Context) error {
	campaigns, err := s.campaigns.All(ctx)
	if err != nil {
		return fmt.Errorf("list campaigns: %w", err)
	}

	var failed int
	for _, c := range campaigns {
		if c.RetentionDays <= 0 {
			continue
		}
		cutoff := s.now().AddDate(0, 0, -c.RetentionDays)
		if err := s.purgeCampaign(ctx, c, cutoff); err != nil {
			failed++
			log.Printf("[Retention] campaign %s: %v", c.ID, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("retention failed for %d campaigns", failed)
	}
	return nil
}

func (s *Service) purgeCampaign(ctx context.Context, c domain.Campaign, cutoff time.Time) error {
	events, err := s.purger.DeleteEventsBefore(ctx, c.ID, cutoff)
	if err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	recipients, err := s.purger.DeleteRecipientsBefore(ctx, c.ID, cutoff)
	if err != nil {
		return fmt.Errorf("delete recipients: %w", err)
	}
	if events == 0 && recipients == 0 {
		return nil
	}

	log.Printf("[Retention] campaign %s: purged %d events, %d recipients older than %s",
		c.ID, events, recipients, cutoff.Format("2006-01-02"))
	s.audit.Record(ctx, audit.ActionRetentionPurge, "campaign", c.ID, "retention", "",
		fmt.Sprintf("purged %d events and %d recipients older than %s", events, recipients, cutoff.Format(time.RFC3339)))
	return nil
}
