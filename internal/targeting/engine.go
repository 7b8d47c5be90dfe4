// Package targeting resolves a campaign's abstract targeting rules
// against a caller-supplied user population into a concrete target list.
package targeting

import (
	"math/rand"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// departmentShare is the rough fraction of the population each selected
// department is assumed to cover when estimating without a real list.
const departmentShare = 0.20

// Engine applies the targeting pipeline. The shuffle source is injected
// so sampling is deterministic in tests.
type Engine struct {
	rnd *rand.Rand
}

// NewEngine creates a targeting engine backed by the given source. A nil
// source falls back to an unseeded generator.
func NewEngine(src rand.Source) *Engine {
	if src == nil {
		src = rand.NewSource(rand.Int63())
	}
	return &Engine{rnd: rand.New(src)}
}

// ComputeTargets narrows the candidate population to the campaign's
// targets. Stages run in a fixed order: department filter, role filter,
// include-list union, exclude-list removal, prior-recipient removal,
// then sampling. Include wins over department/role filtering; exclude
// wins over include. alreadyTargeted holds user ids that have a
// recipient record anywhere in this campaign, so recurring campaigns
// never hit the same person twice.
func (e *Engine) ComputeTargets(c *domain.Campaign, population []domain.User, alreadyTargeted map[string]bool) []domain.User {
	byID := make(map[string]domain.User, len(population))
	for _, u := range population {
		byID[u.ID] = u
	}

	selected := population
	if len(c.TargetDepartments) > 0 {
		selected = filter(selected, stringSet(c.TargetDepartments), func(u domain.User) string { return u.Department })
	}
	if len(c.TargetRoles) > 0 {
		selected = filter(selected, stringSet(c.TargetRoles), func(u domain.User) string { return u.Role })
	}

	if len(c.IncludeUserIDs) > 0 {
		present := make(map[string]bool, len(selected))
		for _, u := range selected {
			present[u.ID] = true
		}
		for _, id := range c.IncludeUserIDs {
			if u, ok := byID[id]; ok && !present[id] {
				selected = append(selected, u)
				present[id] = true
			}
		}
	}

	if len(c.ExcludeUserIDs) > 0 {
		excluded := stringSet(c.ExcludeUserIDs)
		selected = reject(selected, func(u domain.User) bool { return excluded[u.ID] })
	}

	if len(alreadyTargeted) > 0 {
		selected = reject(selected, func(u domain.User) bool { return alreadyTargeted[u.ID] })
	}

	return e.sample(selected, c.SamplingPercent)
}

// sample shuffles and keeps max(1, floor(n*pct/100)) users. A non-empty
// population with a positive percentage always yields at least one
// target.
func (e *Engine) sample(users []domain.User, percent int) []domain.User {
	if percent >= 100 || len(users) == 0 {
		return users
	}
	if percent <= 0 {
		return nil
	}
	n := len(users) * percent / 100
	if n < 1 {
		n = 1
	}
	shuffled := make([]domain.User, len(users))
	copy(shuffled, users)
	e.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// EstimateTargetCount approximates the target list size for UI display
// without materializing the real list. It assumes each selected
// department covers about a fifth of the population; the real run may
// differ.
func EstimateTargetCount(c *domain.Campaign, totalPopulation int) int {
	if totalPopulation <= 0 {
		return 0
	}
	est := float64(totalPopulation)
	if n := len(c.TargetDepartments); n > 0 {
		share := departmentShare * float64(n)
		if share > 1 {
			share = 1
		}
		est *= share
	}
	est += float64(len(c.IncludeUserIDs))
	est -= float64(len(c.ExcludeUserIDs))
	if est < 0 {
		est = 0
	}
	if c.SamplingPercent > 0 && c.SamplingPercent < 100 {
		est = est * float64(c.SamplingPercent) / 100
		if est < 1 {
			est = 1
		}
	}
	return int(est)
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func filter(users []domain.User, allowed map[string]bool, key func(domain.User) string) []domain.User {
	out := users[:0:0]
	for _, u := range users {
		if allowed[key(u)] {
			out = append(out, u)
		}
	}
	return out
}

func reject(users []domain.User, drop func(domain.User) bool) []domain.User {
	out := users[:0:0]
	for _, u := range users {
		if !drop(u) {
			out = append(out, u)
		}
	}
	return out
}
