// Package scheduler decides which SCHEDULED campaigns fire on each tick
// and hosts the periodic background workers.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// CampaignStore is the slice of campaign persistence the scheduler
// needs.
type CampaignStore interface {
	ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error
}

// Runner executes one campaign run. Implemented by the campaign
// service.
type Runner interface {
	ExecuteScheduled(ctx context.Context, c *domain.Campaign, population []domain.User) (*domain.CampaignRun, error)
}

// PopulationSource supplies the candidate user population. The engine
// never sources users itself; the directory collaborator does.
type PopulationSource interface {
	Users(ctx context.Context) ([]domain.User, error)
}

// Scheduler evaluates scheduled campaigns. The evaluation itself has no
// side effects beyond the end-of-range completion, so a tick is always
// safe to repeat.
type Scheduler struct {
	store      CampaignStore
	runner     Runner
	population PopulationSource

	// fireProbabilityPct staggers recurring sends inside their window
	// so recipients don't all get mail at the exact same minute.
	fireProbabilityPct int
	rnd                *rand.Rand
}

func New(store CampaignStore, runner Runner, population PopulationSource, fireProbabilityPct int, src rand.Source) *Scheduler {
	if fireProbabilityPct <= 0 || fireProbabilityPct > 100 {
		fireProbabilityPct = 20
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Scheduler{
		store:              store,
		runner:             runner,
		population:         population,
		fireProbabilityPct: fireProbabilityPct,
		rnd:                rand.New(src),
	}
}

// Tick evaluates every SCHEDULED campaign against the given instant.
// Campaigns past their end date complete; campaigns that are due and
// pass the probability gate run. Per-campaign failures are logged, not
// propagated, so one broken campaign never stalls the rest.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	campaigns, err := s.store.ListByStatus(ctx, domain.CampaignScheduled)
	if err != nil {
		log.Printf("[Scheduler] list scheduled campaigns: %v", err)
		return
	}

	for i := range campaigns {
		c := campaigns[i]
		if c.EndDate != nil && now.After(*c.EndDate) {
			if err := s.store.UpdateStatus(ctx, c.ID, domain.CampaignCompleted); err != nil {
				log.Printf("[Scheduler] complete expired campaign %s: %v", c.ID, err)
			} else {
				log.Printf("[Scheduler] campaign %s passed its end date, completed", c.ID)
			}
			continue
		}
		due, err := s.due(&c, now)
		if err != nil {
			log.Printf("[Scheduler] campaign %s schedule check: %v", c.ID, err)
			continue
		}
		if !due {
			continue
		}
		// One-shot campaigns fire as soon as they are due; only
		// recurring ones are spread out by the probability gate.
		if c.Frequency != domain.FrequencyOnce && s.rnd.Intn(100) >= s.fireProbabilityPct {
			continue
		}
		s.fire(ctx, &c)
	}
}

func (s *Scheduler) fire(ctx context.Context, c *domain.Campaign) {
	population, err := s.population.Users(ctx)
	if err != nil {
		log.Printf("[Scheduler] load population for campaign %s: %v", c.ID, err)
		return
	}
	log.Printf("[Scheduler] firing campaign %s (%s)", c.ID, c.Name)
	if _, err := s.runner.ExecuteScheduled(ctx, c, population); err != nil {
		log.Printf("[Scheduler] campaign %s run failed: %v", c.ID, err)
	}
}

// due applies the date range, daily window, and frequency rules.
func (s *Scheduler) due(c *domain.Campaign, now time.Time) (bool, error) {
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return false, nil
	}

	loc := time.UTC
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return false, fmt.Errorf("timezone %q: %w", c.Timezone, err)
		}
		loc = l
	}
	local := now.In(loc)

	if !inWindow(local, c.WindowStart, c.WindowEnd) {
		return false, nil
	}

	switch c.Frequency {
	case domain.FrequencyWeekly:
		return local.Weekday() == startWeekday(c, loc), nil
	case domain.FrequencyMonthly:
		return local.Day() == monthDay(c, loc, local), nil
	default:
		// ONCE and DAILY have no day-of-cycle constraint
		return true, nil
	}
}

// inWindow checks the local clock against an optional HH:MM window.
// Both bounds are inclusive; a missing or malformed bound leaves that
// side open.
func inWindow(local time.Time, start, end string) bool {
	minutes := local.Hour()*60 + local.Minute()
	if m, ok := parseHHMM(start); ok && minutes < m {
		return false
	}
	if m, ok := parseHHMM(end); ok && minutes > m {
		return false
	}
	return true
}

func parseHHMM(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// startWeekday is the weekly send day: the start date's weekday, or
// Monday when no start date was set.
func startWeekday(c *domain.Campaign, loc *time.Location) time.Weekday {
	if c.StartDate == nil {
		return time.Monday
	}
	return c.StartDate.In(loc).Weekday()
}

// monthDay is the monthly send day: the start date's day of month
// (1 without a start date), clamped to the current month's length so a
// campaign started on the 31st still fires in February.
func monthDay(c *domain.Campaign, loc *time.Location, local time.Time) int {
	day := 1
	if c.StartDate != nil {
		day = c.StartDate.In(loc).Day()
	}
	last := time.Date(local.Year(), local.Month()+1, 0, 0, 0, 0, 0, loc).Day()
	if day > last {
		day = last
	}
	return day
}
