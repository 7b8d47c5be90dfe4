package aggregate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/praesidio-sec/phishsim/internal/aggregate"
	"github.com/praesidio-sec/phishsim/internal/domain"
)

type memSource struct {
	campaigns  []domain.Campaign
	recipients map[string][]domain.Recipient
	events     map[string][]aggregate.DayEvent
}

func (m *memSource) ActiveCampaigns(context.Context) ([]domain.Campaign, error) {
	return m.campaigns, nil
}

func (m *memSource) RecipientsSentOn(_ context.Context, campaignID string, _, _ time.Time) ([]domain.Recipient, error) {
	return m.recipients[campaignID], nil
}

func (m *memSource) EventsBetween(_ context.Context, campaignID string, _, _ time.Time) ([]aggregate.DayEvent, error) {
	return m.events[campaignID], nil
}

// memResults keys rows the way the postgres store's conflict target
// does, so repeated runs update in place.
type memResults struct {
	mu   sync.Mutex
	rows map[string]*domain.DailyResult
}

func newMemResults() *memResults { return &memResults{rows: make(map[string]*domain.DailyResult)} }

func (m *memResults) Upsert(_ context.Context, r *domain.DailyResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := r.CampaignID + "|" + r.Day.Format("2006-01-02") + "|"
	if r.Department != nil {
		key += *r.Department
	}
	cp := *r
	m.rows[key] = &cp
	return nil
}

func (m *memResults) find(dept *string) *domain.DailyResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if dept == nil && r.Department == nil {
			return r
		}
		if dept != nil && r.Department != nil && *dept == *r.Department {
			return r
		}
	}
	return nil
}

func repeat(t domain.EventType, dept string, n int) []aggregate.DayEvent {
	var out []aggregate.DayEvent
	for i := 0; i < n; i++ {
		out = append(out, aggregate.DayEvent{Type: t, Department: dept})
	}
	return out
}

func TestScoreClamped(t *testing.T) {
	cases := []struct {
		name                  string
		click, submit, report float64
		want                  float64
	}{
		{"zero", 0, 0, 0, 0},
		{"clicks only", 50, 0, 0, 30},
		{"submission weighted double", 0, 50, 0, 30},
		{"reporting subtracts", 50, 0, 100, 20},
		{"never negative", 0, 0, 100, 0},
		{"capped at 100", 100, 100, 0, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := aggregate.Score(tc.click, tc.submit, tc.report); got != tc.want {
				t.Fatalf("Score(%v,%v,%v) = %v, want %v", tc.click, tc.submit, tc.report, got, tc.want)
			}
		})
	}
}

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  aggregate.RiskLevel
	}{
		{0, aggregate.RiskExcellent},
		{9.9, aggregate.RiskExcellent},
		{10, aggregate.RiskGood},
		{24.9, aggregate.RiskGood},
		{25, aggregate.RiskModerate},
		{49.9, aggregate.RiskModerate},
		{50, aggregate.RiskHigh},
		{74.9, aggregate.RiskHigh},
		{75, aggregate.RiskCritical},
		{100, aggregate.RiskCritical},
	}
	for _, tc := range cases {
		if got := aggregate.Level(tc.score); got != tc.want {
			t.Fatalf("Level(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestAggregateDayBuckets(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sent := day.Add(10 * time.Hour)

	src := &memSource{
		campaigns: []domain.Campaign{{ID: "camp-1", Status: domain.CampaignRunning}},
		recipients: map[string][]domain.Recipient{
			"camp-1": {
				{ID: "r1", Department: "IT", SentAt: &sent},
				{ID: "r2", Department: "IT", SentAt: &sent},
				{ID: "r3", Department: "Finance", SentAt: &sent},
				{ID: "r4", Department: "Finance", SentAt: &sent},
			},
		},
		events: map[string][]aggregate.DayEvent{
			"camp-1": append(append(
				repeat(domain.EventDelivered, "IT", 2),
				repeat(domain.EventDelivered, "Finance", 2)...),
				aggregate.DayEvent{Type: domain.EventClicked, Department: "IT"},
				aggregate.DayEvent{Type: domain.EventReported, Department: "Finance"},
			),
		},
	}
	results := newMemResults()
	engine := aggregate.NewEngine(src, results)

	if err := engine.AggregateDay(context.Background(), day); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	overall := results.find(nil)
	if overall == nil {
		t.Fatal("missing overall bucket")
	}
	if overall.SentCount != 4 || overall.DeliveredCount != 4 || overall.ClickedCount != 1 || overall.ReportedCount != 1 {
		t.Fatalf("overall counts: %+v", overall)
	}
	if overall.ClickRate != 25 {
		t.Fatalf("overall click rate = %v, want 25", overall.ClickRate)
	}
	// 25*0.6 - 25*0.1 = 12.5
	if overall.RiskScore != 12.5 {
		t.Fatalf("overall risk = %v, want 12.5", overall.RiskScore)
	}

	it := "IT"
	itRow := results.find(&it)
	if itRow == nil {
		t.Fatal("missing IT bucket")
	}
	if itRow.SentCount != 2 || itRow.ClickedCount != 1 || itRow.ClickRate != 50 {
		t.Fatalf("IT bucket: %+v", itRow)
	}

	fin := "Finance"
	finRow := results.find(&fin)
	if finRow == nil {
		t.Fatal("missing Finance bucket")
	}
	if finRow.ClickedCount != 0 || finRow.ReportedCount != 1 {
		t.Fatalf("Finance bucket: %+v", finRow)
	}
}

func TestAggregateDayIdempotent(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sent := day.Add(time.Hour)

	src := &memSource{
		campaigns: []domain.Campaign{{ID: "camp-1"}},
		recipients: map[string][]domain.Recipient{
			"camp-1": {{ID: "r1", Department: "IT", SentAt: &sent}},
		},
		events: map[string][]aggregate.DayEvent{
			"camp-1": repeat(domain.EventDelivered, "IT", 1),
		},
	}
	results := newMemResults()
	engine := aggregate.NewEngine(src, results)

	for i := 0; i < 2; i++ {
		if err := engine.AggregateDay(context.Background(), day); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}
	// one overall row plus one IT row, not doubled
	if len(results.rows) != 2 {
		t.Fatalf("expected 2 rows after re-run, got %d", len(results.rows))
	}
}

func TestAggregateSkipsEmptyCampaigns(t *testing.T) {
	src := &memSource{
		campaigns:  []domain.Campaign{{ID: "camp-idle"}},
		recipients: map[string][]domain.Recipient{},
		events:     map[string][]aggregate.DayEvent{},
	}
	results := newMemResults()
	engine := aggregate.NewEngine(src, results)

	if err := engine.AggregateDay(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(results.rows) != 0 {
		t.Fatalf("expected no rows for idle campaign, got %d", len(results.rows))
	}
}
