package scheduler_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/praesidio-sec/phishsim/internal/domain"
	"github.com/praesidio-sec/phishsim/internal/scheduler"
)

type memStore struct {
	campaigns []domain.Campaign
	statuses  map[string]domain.CampaignStatus
}

func newMemStore(campaigns ...domain.Campaign) *memStore {
	return &memStore{campaigns: campaigns, statuses: make(map[string]domain.CampaignStatus)}
}

func (m *memStore) ListByStatus(_ context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status domain.CampaignStatus) error {
	m.statuses[id] = status
	return nil
}

type memRunner struct {
	ran []string
}

func (m *memRunner) ExecuteScheduled(_ context.Context, c *domain.Campaign, _ []domain.User) (*domain.CampaignRun, error) {
	m.ran = append(m.ran, c.ID)
	return &domain.CampaignRun{CampaignID: c.ID, Status: domain.RunCompleted}, nil
}

type memPopulation struct{}

func (memPopulation) Users(context.Context) ([]domain.User, error) {
	return []domain.User{{ID: "u1", Email: "u1@corp.example"}}, nil
}

// alwaysFire pins the probability gate open.
const alwaysFire = 100

func ts(v time.Time) *time.Time { return &v }

func newScheduler(store *memStore, runner *memRunner, pct int) *scheduler.Scheduler {
	return scheduler.New(store, runner, memPopulation{}, pct, rand.NewSource(1))
}

func scheduled(id string, mutate func(*domain.Campaign)) domain.Campaign {
	c := domain.Campaign{
		ID:        id,
		Name:      id,
		Status:    domain.CampaignScheduled,
		Frequency: domain.FrequencyDaily,
		Timezone:  "UTC",
	}
	if mutate != nil {
		mutate(&c)
	}
	return c
}

func TestTickFiresDueCampaign(t *testing.T) {
	store := newMemStore(scheduled("camp-1", nil))
	runner := &memRunner{}
	s := newScheduler(store, runner, alwaysFire)

	s.Tick(context.Background(), time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	if len(runner.ran) != 1 || runner.ran[0] != "camp-1" {
		t.Fatalf("ran: %v", runner.ran)
	}
}

func TestTickCompletesExpiredCampaign(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := newMemStore(scheduled("camp-old", func(c *domain.Campaign) {
		c.EndDate = ts(now.AddDate(0, 0, -1))
	}))
	runner := &memRunner{}
	s := newScheduler(store, runner, alwaysFire)

	s.Tick(context.Background(), now)
	if len(runner.ran) != 0 {
		t.Fatalf("expired campaign must not run: %v", runner.ran)
	}
	if store.statuses["camp-old"] != domain.CampaignCompleted {
		t.Fatalf("expired campaign status = %s, want COMPLETED", store.statuses["camp-old"])
	}
}

func TestTickSkipsBeforeStartDate(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := newMemStore(scheduled("camp-future", func(c *domain.Campaign) {
		c.StartDate = ts(now.AddDate(0, 0, 3))
	}))
	runner := &memRunner{}
	s := newScheduler(store, runner, alwaysFire)

	s.Tick(context.Background(), now)
	if len(runner.ran) != 0 {
		t.Fatalf("future campaign must not run: %v", runner.ran)
	}
	if _, changed := store.statuses["camp-future"]; changed {
		t.Fatal("future campaign status must not change")
	}
}

func TestTickHonorsDailyWindow(t *testing.T) {
	store := newMemStore(scheduled("camp-window", func(c *domain.Campaign) {
		c.WindowStart = "09:00"
		c.WindowEnd = "17:00"
	}))

	cases := []struct {
		hour, min int
		want      bool
	}{
		{8, 59, false},
		{9, 0, true},
		{16, 30, true},
		{17, 0, true}, // both window bounds are inclusive
		{17, 1, false},
		{22, 30, false},
	}
	for _, tc := range cases {
		runner := &memRunner{}
		s := newScheduler(store, runner, alwaysFire)
		s.Tick(context.Background(), time.Date(2026, 9, 1, tc.hour, tc.min, 0, 0, time.UTC))
		if got := len(runner.ran) == 1; got != tc.want {
			t.Fatalf("%02d:%02d: fired=%v, want %v", tc.hour, tc.min, got, tc.want)
		}
	}
}

func TestTickHonorsTimezone(t *testing.T) {
	// 13:00 UTC is 09:00 in New York (EDT): inside the window there,
	// and 03:00 UTC is 23:00 the prior evening: outside.
	store := newMemStore(scheduled("camp-tz", func(c *domain.Campaign) {
		c.Timezone = "America/New_York"
		c.WindowStart = "09:00"
		c.WindowEnd = "17:00"
	}))

	runner := &memRunner{}
	s := newScheduler(store, runner, alwaysFire)
	s.Tick(context.Background(), time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC))
	if len(runner.ran) != 0 {
		t.Fatal("03:00 UTC is outside the New York window")
	}

	s.Tick(context.Background(), time.Date(2026, 9, 1, 13, 30, 0, 0, time.UTC))
	if len(runner.ran) != 1 {
		t.Fatal("13:30 UTC is inside the New York window")
	}
}

func TestWeeklyFiresOnStartWeekday(t *testing.T) {
	// start date 2026-08-05 is a Wednesday
	store := newMemStore(scheduled("camp-weekly", func(c *domain.Campaign) {
		c.Frequency = domain.FrequencyWeekly
		c.StartDate = ts(time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC))
	}))

	runner := &memRunner{}
	s := newScheduler(store, runner, alwaysFire)

	// 2026-09-01 is a Tuesday
	s.Tick(context.Background(), time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	if len(runner.ran) != 0 {
		t.Fatal("weekly campaign must not fire off its weekday")
	}
	// 2026-09-02 is a Wednesday
	s.Tick(context.Background(), time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC))
	if len(runner.ran) != 1 {
		t.Fatal("weekly campaign should fire on its start weekday")
	}
}

func TestWeeklyDefaultsToMonday(t *testing.T) {
	store := newMemStore(scheduled("camp-weekly", func(c *domain.Campaign) {
		c.Frequency = domain.FrequencyWeekly
	}))
	runner := &memRunner{}
	s := newScheduler(store, runner, alwaysFire)

	// 2026-08-31 is a Monday
	s.Tick(context.Background(), time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	if len(runner.ran) != 1 {
		t.Fatal("weekly campaign without start date should fire on Monday")
	}
}

func TestMonthlyClampsDay(t *testing.T) {
	store := newMemStore(scheduled("camp-monthly", func(c *domain.Campaign) {
		c.Frequency = domain.FrequencyMonthly
		c.StartDate = ts(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	}))

	runner := &memRunner{}
	s := newScheduler(store, runner, alwaysFire)

	// February 2026 has 28 days: the 31st clamps to the 28th
	s.Tick(context.Background(), time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC))
	if len(runner.ran) != 1 {
		t.Fatal("monthly campaign should clamp to the last day of February")
	}
	s.Tick(context.Background(), time.Date(2026, 3, 28, 12, 0, 0, 0, time.UTC))
	if len(runner.ran) != 1 {
		t.Fatal("monthly campaign must not fire on the 28th of a 31-day month")
	}
	s.Tick(context.Background(), time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC))
	if len(runner.ran) != 2 {
		t.Fatal("monthly campaign should fire on the 31st of March")
	}
}

func TestProbabilityGate(t *testing.T) {
	store := newMemStore(scheduled("camp-1", nil))
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// with a 20% gate a due campaign fires on roughly one tick in five
	runner := &memRunner{}
	s := newScheduler(store, runner, 20)
	for i := 0; i < 1000; i++ {
		s.Tick(context.Background(), now)
	}
	if len(runner.ran) < 100 || len(runner.ran) > 350 {
		t.Fatalf("20%% gate fired %d of 1000 ticks", len(runner.ran))
	}
}

func TestOneShotSkipsProbabilityGate(t *testing.T) {
	store := newMemStore(scheduled("camp-once", func(c *domain.Campaign) {
		c.Frequency = domain.FrequencyOnce
	}))
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// a due one-shot fires on every tick no matter how tight the gate
	runner := &memRunner{}
	s := newScheduler(store, runner, 1)
	for i := 0; i < 50; i++ {
		s.Tick(context.Background(), now)
	}
	if len(runner.ran) != 50 {
		t.Fatalf("one-shot fired %d of 50 ticks", len(runner.ran))
	}
}

func TestManagerStartStop(t *testing.T) {
	store := newMemStore()
	runner := &memRunner{}
	m := scheduler.NewManager(
		newScheduler(store, runner, alwaysFire),
		nil, nil,
		scheduler.ManagerConfig{TickInterval: 10 * time.Millisecond},
	)
	m.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	m.Stop()
}
