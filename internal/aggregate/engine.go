// Package aggregate rolls raw recipients and events up into per-day,
// per-department result rows and owns the risk scoring function shared
// with reporting.
package aggregate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// DayEvent is one event joined with its recipient's department, the
// only two facts aggregation needs.
type DayEvent struct {
	Type       domain.EventType
	Department string
}

// Source supplies the raw material for one aggregation pass.
type Source interface {
	// ActiveCampaigns returns campaigns still producing data: RUNNING,
	// SCHEDULED, or recently completed.
	ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)

	// RecipientsSentOn returns recipients whose send timestamp falls in
	// [from, to).
	RecipientsSentOn(ctx context.Context, campaignID string, from, to time.Time) ([]domain.Recipient, error)

	// EventsBetween returns events created in [from, to), each joined
	// with the recipient's department.
	EventsBetween(ctx context.Context, campaignID string, from, to time.Time) ([]DayEvent, error)
}

// ResultStore upserts daily rows keyed on (campaign, day, department),
// so re-running a day never duplicates rows.
type ResultStore interface {
	Upsert(ctx context.Context, r *domain.DailyResult) error
}

// Engine recomputes daily statistics.
type Engine struct {
	src     Source
	results ResultStore
}

func NewEngine(src Source, results ResultStore) *Engine {
	return &Engine{src: src, results: results}
}

// bucket accumulates counts for one department (or the overall bucket).
type bucket struct {
	sent          int
	delivered     int
	opened        int
	clicked       int
	reported      int
	dataSubmitted int
}

func (b *bucket) empty() bool {
	return b.sent == 0 && b.delivered == 0 && b.opened == 0 &&
		b.clicked == 0 && b.reported == 0 && b.dataSubmitted == 0
}

func (b *bucket) addEvent(t domain.EventType) {
	switch t {
	case domain.EventDelivered:
		b.delivered++
	case domain.EventOpened:
		b.opened++
	case domain.EventClicked:
		b.clicked++
	case domain.EventReported:
		b.reported++
	case domain.EventDataSubmitted:
		b.dataSubmitted++
	}
}

// AggregateDay recomputes the given calendar day (UTC) for every active
// campaign. Campaign failures are isolated; one broken campaign does
// not stop the pass.
func (e *Engine) AggregateDay(ctx context.Context, day time.Time) error {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	campaigns, err := e.src.ActiveCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("list active campaigns: %w", err)
	}

	var failed int
	for _, c := range campaigns {
		if err := e.aggregateCampaign(ctx, c.ID, from, to); err != nil {
			failed++
			log.Printf("[Aggregate] campaign %s day %s: %v", c.ID, from.Format("2006-01-02"), err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("aggregation failed for %d of %d campaigns", failed, len(campaigns))
	}
	return nil
}

func (e *Engine) aggregateCampaign(ctx context.Context, campaignID string, from, to time.Time) error {
	recipients, err := e.src.RecipientsSentOn(ctx, campaignID, from, to)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	events, err := e.src.EventsBetween(ctx, campaignID, from, to)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	overall := &bucket{}
	byDept := make(map[string]*bucket)
	dept := func(name string) *bucket {
		b, ok := byDept[name]
		if !ok {
			b = &bucket{}
			byDept[name] = b
		}
		return b
	}

	for _, r := range recipients {
		overall.sent++
		dept(r.Department).sent++
	}
	for _, ev := range events {
		overall.addEvent(ev.Type)
		dept(ev.Department).addEvent(ev.Type)
	}

	if overall.empty() {
		return nil
	}

	if err := e.upsert(ctx, campaignID, from, nil, overall); err != nil {
		return err
	}
	for name, b := range byDept {
		if b.empty() {
			continue
		}
		name := name
		if err := e.upsert(ctx, campaignID, from, &name, b); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) upsert(ctx context.Context, campaignID string, day time.Time, department *string, b *bucket) error {
	clickRate := Rate(b.clicked, b.delivered)
	submitRate := Rate(b.dataSubmitted, b.delivered)
	reportRate := Rate(b.reported, b.delivered)

	return e.results.Upsert(ctx, &domain.DailyResult{
		ID:                 uuid.New().String(),
		CampaignID:         campaignID,
		Day:                day,
		Department:         department,
		SentCount:          b.sent,
		DeliveredCount:     b.delivered,
		OpenedCount:        b.opened,
		ClickedCount:       b.clicked,
		ReportedCount:      b.reported,
		DataSubmittedCount: b.dataSubmitted,
		ClickRate:          clickRate,
		ReportRate:         reportRate,
		RiskScore:          Score(clickRate, submitRate, reportRate),
	})
}
