package postgres

import (
	"context"
	"time"

	"github.com/praesidio-sec/phishsim/internal/aggregate"
	"github.com/praesidio-sec/phishsim/internal/domain"
)

// ReportStore adapts the repositories to the report service's read
// contract.
type ReportStore struct {
	Campaigns  *CampaignRepo
	Rollups    *ResultRepo
	People     *RecipientRepo
	EventsRepo *EventRepo
}

func NewReportStore(campaigns *CampaignRepo, rollups *ResultRepo, people *RecipientRepo, events *EventRepo) *ReportStore {
	return &ReportStore{Campaigns: campaigns, Rollups: rollups, People: people, EventsRepo: events}
}

func (s *ReportStore) Campaign(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.Campaigns.Get(ctx, id)
}

func (s *ReportStore) Results(ctx context.Context, campaignID string, from, to *time.Time) ([]domain.DailyResult, error) {
	return s.Rollups.List(ctx, campaignID, from, to)
}

func (s *ReportStore) Recipients(ctx context.Context, campaignID string) ([]domain.Recipient, error) {
	return s.People.ListByCampaign(ctx, campaignID)
}

func (s *ReportStore) Events(ctx context.Context, campaignID string) ([]domain.Event, error) {
	return s.EventsRepo.ListByCampaign(ctx, campaignID)
}

// AggregateStore adapts the repositories to the aggregation engine.
type AggregateStore struct {
	Campaigns  *CampaignRepo
	People     *RecipientRepo
	EventsRepo *EventRepo
}

func NewAggregateStore(campaigns *CampaignRepo, people *RecipientRepo, events *EventRepo) *AggregateStore {
	return &AggregateStore{Campaigns: campaigns, People: people, EventsRepo: events}
}

func (s *AggregateStore) ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.Campaigns.ActiveCampaigns(ctx)
}

func (s *AggregateStore) RecipientsSentOn(ctx context.Context, campaignID string, from, to time.Time) ([]domain.Recipient, error) {
	return s.People.SentOn(ctx, campaignID, from, to)
}

func (s *AggregateStore) EventsBetween(ctx context.Context, campaignID string, from, to time.Time) ([]aggregate.DayEvent, error) {
	return s.EventsRepo.Between(ctx, campaignID, from, to)
}

// RetentionStore adapts the repositories to the retention purger, in
// event-then-recipient deletion order.
type RetentionStore struct {
	People     *RecipientRepo
	EventsRepo *EventRepo
}

func NewRetentionStore(people *RecipientRepo, events *EventRepo) *RetentionStore {
	return &RetentionStore{People: people, EventsRepo: events}
}

func (s *RetentionStore) DeleteEventsBefore(ctx context.Context, campaignID string, cutoff time.Time) (int64, error) {
	return s.EventsRepo.DeleteBefore(ctx, campaignID, cutoff)
}

func (s *RetentionStore) DeleteRecipientsBefore(ctx context.Context, campaignID string, cutoff time.Time) (int64, error) {
	return s.People.DeleteBefore(ctx, campaignID, cutoff)
}
