// Package report builds read models over campaigns, recipients, events,
// and daily rollups. It reuses the aggregation scoring so to-date and
// daily numbers can never disagree on what a score means.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/praesidio-sec/phishsim/internal/aggregate"
	"github.com/praesidio-sec/phishsim/internal/domain"
)

// Store is the read-side data access the report service needs.
type Store interface {
	// Campaign returns one campaign or ErrNotFound.
	Campaign(ctx context.Context, id string) (*domain.Campaign, error)

	// Results returns daily rollups, optionally bounded to [from, to].
	Results(ctx context.Context, campaignID string, from, to *time.Time) ([]domain.DailyResult, error)

	// Recipients returns every recipient of the campaign ordered by
	// creation time.
	Recipients(ctx context.Context, campaignID string) ([]domain.Recipient, error)

	// Events returns every event of the campaign.
	Events(ctx context.Context, campaignID string) ([]domain.Event, error)
}

// Summary is the whole-campaign-to-date report.
type Summary struct {
	CampaignID string                `json:"campaign_id"`
	Name       string                `json:"name"`
	Status     domain.CampaignStatus `json:"status"`

	TargetedCount      int `json:"targeted_count"`
	SentCount          int `json:"sent_count"`
	DeliveredCount     int `json:"delivered_count"`
	OpenedCount        int `json:"opened_count"`
	ClickedCount       int `json:"clicked_count"`
	DataSubmittedCount int `json:"data_submitted_count"`
	ReportedCount      int `json:"reported_count"`
	FailedCount        int `json:"failed_count"`

	ClickRate      float64             `json:"click_rate"`
	DataSubmitRate float64             `json:"data_submit_rate"`
	ReportRate     float64             `json:"report_rate"`
	RiskScore      float64             `json:"risk_score"`
	RiskLevel      aggregate.RiskLevel `json:"risk_level"`
}

// DepartmentResult sums a campaign's daily rollups for one department.
type DepartmentResult struct {
	Department         string              `json:"department"`
	SentCount          int                 `json:"sent_count"`
	DeliveredCount     int                 `json:"delivered_count"`
	OpenedCount        int                 `json:"opened_count"`
	ClickedCount       int                 `json:"clicked_count"`
	DataSubmittedCount int                 `json:"data_submitted_count"`
	ReportedCount      int                 `json:"reported_count"`
	ClickRate          float64             `json:"click_rate"`
	ReportRate         float64             `json:"report_rate"`
	RiskScore          float64             `json:"risk_score"`
	RiskLevel          aggregate.RiskLevel `json:"risk_level"`
}

// UserResult is one recipient's outcome. Under ANONYMIZED privacy mode
// the identity fields are masked before leaving the service.
type UserResult struct {
	DisplayName string                 `json:"display_name"`
	Email       string                 `json:"email,omitempty"`
	Department  string                 `json:"department"`
	Status      domain.RecipientStatus `json:"status"`
	SentAt      *time.Time             `json:"sent_at"`

	Opened        bool `json:"opened"`
	Clicked       bool `json:"clicked"`
	ClickCount    int  `json:"click_count"`
	DataSubmitted bool `json:"data_submitted"`
	Reported      bool `json:"reported"`

	// TimeToClickSeconds is the gap between the send timestamp and the
	// earliest click for this recipient, nil without both.
	TimeToClickSeconds *float64 `json:"time_to_click_seconds"`
}

// Service assembles reports.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Summary computes the campaign-to-date report from raw recipients and
// events. Rates count distinct recipients, so a repeat clicker moves
// the click count but not the click rate.
func (s *Service) Summary(ctx context.Context, campaignID string) (*Summary, error) {
	c, err := s.store.Campaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	recipients, err := s.store.Recipients(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	events, err := s.store.Events(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	sum := &Summary{
		CampaignID:    c.ID,
		Name:          c.Name,
		Status:        c.Status,
		TargetedCount: len(recipients),
	}
	for _, r := range recipients {
		switch r.Status {
		case domain.RecipientSent, domain.RecipientDelivered:
			sum.SentCount++
		case domain.RecipientFailed, domain.RecipientBounced:
			sum.FailedCount++
		}
	}

	clickedBy := make(map[string]bool)
	for _, e := range events {
		switch e.Type {
		case domain.EventDelivered:
			sum.DeliveredCount++
		case domain.EventOpened:
			sum.OpenedCount++
		case domain.EventClicked:
			sum.ClickedCount++
			clickedBy[e.RecipientID] = true
		case domain.EventDataSubmitted:
			sum.DataSubmittedCount++
		case domain.EventReported:
			sum.ReportedCount++
		}
	}

	sum.ClickRate = aggregate.Rate(len(clickedBy), sum.DeliveredCount)
	sum.DataSubmitRate = aggregate.Rate(sum.DataSubmittedCount, sum.DeliveredCount)
	sum.ReportRate = aggregate.Rate(sum.ReportedCount, sum.DeliveredCount)
	sum.RiskScore = aggregate.Score(sum.ClickRate, sum.DataSubmitRate, sum.ReportRate)
	sum.RiskLevel = aggregate.Level(sum.RiskScore)
	return sum, nil
}

// Daily returns the overall-bucket rollups, optionally bounded by date.
func (s *Service) Daily(ctx context.Context, campaignID string, from, to *time.Time) ([]domain.DailyResult, error) {
	if _, err := s.store.Campaign(ctx, campaignID); err != nil {
		return nil, err
	}
	rows, err := s.store.Results(ctx, campaignID, from, to)
	if err != nil {
		return nil, err
	}
	var out []domain.DailyResult
	for _, r := range rows {
		if r.Department == nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// Departments sums every department-bucket rollup across the campaign's
// lifetime and rescores the totals.
func (s *Service) Departments(ctx context.Context, campaignID string) ([]DepartmentResult, error) {
	if _, err := s.store.Campaign(ctx, campaignID); err != nil {
		return nil, err
	}
	rows, err := s.store.Results(ctx, campaignID, nil, nil)
	if err != nil {
		return nil, err
	}

	byDept := make(map[string]*DepartmentResult)
	for _, r := range rows {
		if r.Department == nil {
			continue
		}
		d, ok := byDept[*r.Department]
		if !ok {
			d = &DepartmentResult{Department: *r.Department}
			byDept[*r.Department] = d
		}
		d.SentCount += r.SentCount
		d.DeliveredCount += r.DeliveredCount
		d.OpenedCount += r.OpenedCount
		d.ClickedCount += r.ClickedCount
		d.DataSubmittedCount += r.DataSubmittedCount
		d.ReportedCount += r.ReportedCount
	}

	out := make([]DepartmentResult, 0, len(byDept))
	for _, d := range byDept {
		d.ClickRate = aggregate.Rate(d.ClickedCount, d.DeliveredCount)
		d.ReportRate = aggregate.Rate(d.ReportedCount, d.DeliveredCount)
		submitRate := aggregate.Rate(d.DataSubmittedCount, d.DeliveredCount)
		d.RiskScore = aggregate.Score(d.ClickRate, submitRate, d.ReportRate)
		d.RiskLevel = aggregate.Level(d.RiskScore)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out, nil
}

// Users builds per-recipient outcomes. When the campaign's privacy mode
// is ANONYMIZED, names and emails are replaced with stable participant
// labels before the result leaves this method.
func (s *Service) Users(ctx context.Context, campaignID string) ([]UserResult, error) {
	c, err := s.store.Campaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	recipients, err := s.store.Recipients(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	events, err := s.store.Events(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	byRecipient := make(map[string][]domain.Event)
	for _, e := range events {
		byRecipient[e.RecipientID] = append(byRecipient[e.RecipientID], e)
	}

	out := make([]UserResult, 0, len(recipients))
	for i, r := range recipients {
		u := UserResult{
			DisplayName: displayName(r),
			Email:       r.Email,
			Department:  r.Department,
			Status:      r.Status,
			SentAt:      r.SentAt,
		}
		var earliestClick *time.Time
		for _, e := range byRecipient[r.ID] {
			switch e.Type {
			case domain.EventOpened:
				u.Opened = true
			case domain.EventClicked:
				u.Clicked = true
				u.ClickCount++
				if earliestClick == nil || e.CreatedAt.Before(*earliestClick) {
					t := e.CreatedAt
					earliestClick = &t
				}
			case domain.EventDataSubmitted:
				u.DataSubmitted = true
			case domain.EventReported:
				u.Reported = true
			}
		}
		if earliestClick != nil && r.SentAt != nil {
			secs := earliestClick.Sub(*r.SentAt).Seconds()
			u.TimeToClickSeconds = &secs
		}
		if c.PrivacyMode == domain.PrivacyAnonymized {
			u.DisplayName = fmt.Sprintf("Participant %d", i+1)
			u.Email = ""
		}
		out = append(out, u)
	}
	return out, nil
}

func displayName(r domain.Recipient) string {
	switch {
	case r.FirstName != "" && r.LastName != "":
		return r.FirstName + " " + r.LastName
	case r.FirstName != "":
		return r.FirstName
	default:
		return r.Email
	}
}
