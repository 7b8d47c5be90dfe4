package targeting_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/praesidio-sec/phishsim/internal/domain"
	"github.com/praesidio-sec/phishsim/internal/targeting"
)

func user(id, dept, role string) domain.User {
	return domain.User{
		ID:         id,
		Email:      id + "@corp.example",
		Department: dept,
		Role:       role,
	}
}

func ids(users []domain.User) map[string]bool {
	out := make(map[string]bool, len(users))
	for _, u := range users {
		out[u.ID] = true
	}
	return out
}

func engine() *targeting.Engine {
	return targeting.NewEngine(rand.NewSource(1))
}

func TestDepartmentFilterPlusInclude(t *testing.T) {
	population := []domain.User{
		user("it-1", "IT", "Engineer"),
		user("it-2", "IT", "Engineer"),
		user("fin-1", "Finance", "Analyst"),
		user("hr-1", "HR", "Manager"),
	}
	c := &domain.Campaign{
		TargetDepartments: []string{"IT"},
		IncludeUserIDs:    []string{"fin-1"},
		SamplingPercent:   100,
	}

	got := ids(engine().ComputeTargets(c, population, nil))
	want := map[string]bool{"it-1": true, "it-2": true, "fin-1": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for id := range want {
		if !got[id] {
			t.Fatalf("missing %s in %v", id, got)
		}
	}
}

func TestRoleFilter(t *testing.T) {
	population := []domain.User{
		user("a", "IT", "Engineer"),
		user("b", "IT", "Manager"),
		user("c", "Finance", "Manager"),
	}
	c := &domain.Campaign{TargetRoles: []string{"Manager"}, SamplingPercent: 100}

	got := ids(engine().ComputeTargets(c, population, nil))
	if len(got) != 2 || !got["b"] || !got["c"] {
		t.Fatalf("got %v", got)
	}
}

func TestExcludeWinsOverInclude(t *testing.T) {
	population := []domain.User{
		user("a", "IT", "Engineer"),
		user("b", "Finance", "Analyst"),
	}
	c := &domain.Campaign{
		TargetDepartments: []string{"IT"},
		IncludeUserIDs:    []string{"b"},
		ExcludeUserIDs:    []string{"b"},
		SamplingPercent:   100,
	}

	got := ids(engine().ComputeTargets(c, population, nil))
	if got["b"] {
		t.Fatalf("excluded user survived: %v", got)
	}
	if !got["a"] {
		t.Fatalf("got %v", got)
	}
}

func TestAlreadyTargetedRemoved(t *testing.T) {
	population := []domain.User{
		user("a", "IT", "Engineer"),
		user("b", "IT", "Engineer"),
	}
	c := &domain.Campaign{SamplingPercent: 100}

	got := ids(engine().ComputeTargets(c, population, map[string]bool{"a": true}))
	if got["a"] || !got["b"] {
		t.Fatalf("got %v", got)
	}
}

func TestSamplingExactSize(t *testing.T) {
	var population []domain.User
	for i := 0; i < 10; i++ {
		population = append(population, user(fmt.Sprintf("u%d", i), "IT", "Engineer"))
	}
	c := &domain.Campaign{SamplingPercent: 50}

	got := engine().ComputeTargets(c, population, nil)
	if len(got) != 5 {
		t.Fatalf("expected 5 sampled targets, got %d", len(got))
	}
}

func TestSamplingNeverZeroForPositivePercent(t *testing.T) {
	population := []domain.User{
		user("a", "IT", "Engineer"),
		user("b", "IT", "Engineer"),
		user("c", "IT", "Engineer"),
	}
	c := &domain.Campaign{SamplingPercent: 1}

	got := engine().ComputeTargets(c, population, nil)
	if len(got) < 1 {
		t.Fatal("sampling produced an empty target list")
	}
}

func TestSamplingZeroPercent(t *testing.T) {
	population := []domain.User{user("a", "IT", "Engineer")}
	c := &domain.Campaign{SamplingPercent: 0}

	if got := engine().ComputeTargets(c, population, nil); len(got) != 0 {
		t.Fatalf("expected no targets at 0%%, got %d", len(got))
	}
}

func TestEstimateTargetCount(t *testing.T) {
	c := &domain.Campaign{
		TargetDepartments: []string{"IT"},
		SamplingPercent:   50,
	}
	got := targeting.EstimateTargetCount(c, 1000)
	// One department ~20% of 1000, then 50% sampling.
	if got != 100 {
		t.Fatalf("estimate = %d, want 100", got)
	}

	if targeting.EstimateTargetCount(c, 0) != 0 {
		t.Fatal("empty population should estimate 0")
	}
}
