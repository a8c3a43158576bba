package rotation

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRotator(t *testing.T, opts Options) *Rotator {
	t.Helper()
	r, err := NewRotator(opts)
	require.NoError(t, err, "NewRotator should succeed")
	return r
}

func decisionsByName(p *Plan) map[string]Decision {
	out := make(map[string]Decision, len(p.Decisions))
	for _, d := range p.Decisions {
		out[d.Name] = d
	}
	return out
}

func dailyNames(start time.Time, days int) []string {
	names := make([]string, 0, days)
	for i := 0; i < days; i++ {
		names = append(names, fmt.Sprintf("backup-%s.tar", start.AddDate(0, 0, i).Format("20060102")))
	}
	return names
}

func TestPlanDailyScenario(t *testing.T) {
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(2))})

	plan, excluded := r.Plan("/backups", []string{
		"backup-20240103.tar",
		"backup-20240101.tar",
		"backup-20240102.tar",
	})
	assert.Empty(t, excluded)
	require.Len(t, plan.Decisions, 3)

	assert.Equal(t, "backup-20240101.tar", plan.Decisions[0].Name)
	assert.Equal(t, Discard, plan.Decisions[0].Action)
	assert.Equal(t, []string{ReasonNoCriterion}, plan.Decisions[0].Reasons)

	assert.Equal(t, "backup-20240102.tar", plan.Decisions[1].Name)
	assert.Equal(t, Keep, plan.Decisions[1].Action)
	assert.Equal(t, []string{"daily 2024-01-02"}, plan.Decisions[1].Reasons)

	assert.Equal(t, "backup-20240103.tar", plan.Decisions[2].Name)
	assert.Equal(t, Keep, plan.Decisions[2].Action)
	assert.Equal(t, []string{ReasonMostRecent, "daily 2024-01-03"}, plan.Decisions[2].Reasons)
}

func TestPlanKeepsUndatedNames(t *testing.T) {
	schemes := []Scheme{
		{},
		Scheme{}.With(Daily, Count(0)),
		Scheme{}.With(Yearly, Always()),
	}
	for _, scheme := range schemes {
		r := newTestRotator(t, Options{Scheme: scheme})
		plan, _ := r.Plan("/backups", []string{"nightly.tar", "backup-20240101.tar", "backup-20230101.tar"})

		d := decisionsByName(plan)["nightly.tar"]
		assert.Equal(t, Keep, d.Action, "scheme %s", scheme)
		assert.Equal(t, []string{ReasonNoTimestamp}, d.Reasons)
		assert.Equal(t, "nightly.tar", plan.Decisions[len(plan.Decisions)-1].Name, "undated names are listed last")
	}
}

func TestPlanAlwaysKeepsMostRecent(t *testing.T) {
	names := []string{"backup-20240101.tar", "backup-20240301.tar", "backup-20240201.tar"}

	schemes := []Scheme{
		{},
		Scheme{}.With(Daily, Count(0)),
		Scheme{}.With(Hourly, Count(0)).With(Yearly, Count(0)),
	}
	for _, scheme := range schemes {
		r := newTestRotator(t, Options{Scheme: scheme})
		plan, _ := r.Plan("/backups", names)

		d := decisionsByName(plan)["backup-20240301.tar"]
		assert.Equal(t, Keep, d.Action, "scheme %s", scheme)
		assert.Contains(t, d.Reasons, ReasonMostRecent)
	}
}

func TestPlanInvalidTimeOfDayDoesNotOutrankNewest(t *testing.T) {
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(1))})

	plan, _ := r.Plan("/backups", []string{"db-20240101-2412.tar", "db-20240105.tar"})
	byName := decisionsByName(plan)

	newest := byName["db-20240105.tar"]
	assert.Equal(t, Keep, newest.Action)
	assert.Equal(t, []string{ReasonMostRecent, "daily 2024-01-05"}, newest.Reasons)

	garbled := byName["db-20240101-2412.tar"]
	assert.False(t, garbled.HasTimestamp)
	assert.Equal(t, Keep, garbled.Action)
	assert.Equal(t, []string{ReasonNoTimestamp}, garbled.Reasons)
}

func TestNaturalLessIsStrictOrder(t *testing.T) {
	assert.True(t, naturalLess("backup-2", "backup-10"))
	assert.False(t, naturalLess("backup-10", "backup-2"))
	assert.NotEqual(t, naturalLess("a1", "a01"), naturalLess("a01", "a1"))
	assert.False(t, naturalLess("same", "same"))
}

func TestPlanOrderIgnoresListingOrder(t *testing.T) {
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(1))})

	first, _ := r.Plan("/backups", []string{"db-1-20240101.tar", "db-01-20240101.tar"})
	second, _ := r.Plan("/backups", []string{"db-01-20240101.tar", "db-1-20240101.tar"})
	assert.Equal(t, first.Decisions, second.Decisions)
}

func TestPlanZeroCountDiscardsAllButLatest(t *testing.T) {
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(0))})
	plan, _ := r.Plan("/backups", dailyNames(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3))

	assert.Len(t, plan.Kept(), 1)
	assert.Len(t, plan.Discarded(), 2)
}

func TestPlanEmptySchemeIsNoop(t *testing.T) {
	r := newTestRotator(t, Options{})
	plan, _ := r.Plan("/backups", dailyNames(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5))

	assert.Empty(t, plan.Discarded())
	for _, d := range plan.Decisions {
		assert.Contains(t, d.Reasons, ReasonNoScheme)
	}
}

func TestPlanDailyBoundary(t *testing.T) {
	names := dailyNames(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(7))})

	plan, _ := r.Plan("/backups", names)
	require.Len(t, plan.Decisions, 10)

	for i, d := range plan.Decisions {
		if i < 3 {
			assert.Equal(t, Discard, d.Action, "%s should be discarded", d.Name)
		} else {
			assert.Equal(t, Keep, d.Action, "%s should be kept", d.Name)
		}
	}
	assert.Equal(t, "backup-20240103.tar", plan.Decisions[2].Name, "8th most recent day is the newest discard")
}

func TestPlanUnionAcrossGranularities(t *testing.T) {
	names := []string{"backup-20240115.tar", "backup-20240131.tar", "backup-20240201.tar"}
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(1)).With(Monthly, Count(2))})

	plan, _ := r.Plan("/backups", names)
	byName := decisionsByName(plan)

	assert.Equal(t, Discard, byName["backup-20240115.tar"].Action)
	assert.Equal(t, Keep, byName["backup-20240131.tar"].Action)
	assert.Equal(t, []string{"monthly 2024-01"}, byName["backup-20240131.tar"].Reasons)
	assert.Equal(t, []string{ReasonMostRecent, "daily 2024-02-01", "monthly 2024-02"}, byName["backup-20240201.tar"].Reasons)
}

func TestPlanMonthlyRescuesDailyDiscard(t *testing.T) {
	// The 2024-01-31 backup falls outside daily=1 but is January's monthly
	// representative, so it survives.
	names := []string{"backup-20240131.tar", "backup-20240201.tar", "backup-20240202.tar"}

	dailyOnly := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(1))})
	plan, _ := dailyOnly.Plan("/backups", names)
	assert.Equal(t, Discard, decisionsByName(plan)["backup-20240131.tar"].Action)

	withMonthly := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(1)).With(Monthly, Count(1))})
	plan, _ = withMonthly.Plan("/backups", names)
	assert.Equal(t, Discard, decisionsByName(plan)["backup-20240131.tar"].Action, "monthly=1 only covers February")

	withTwoMonths := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(1)).With(Monthly, Count(2))})
	plan, _ = withTwoMonths.Plan("/backups", names)
	assert.Equal(t, Keep, decisionsByName(plan)["backup-20240131.tar"].Action)
}

func TestPlanOnlyRepresentativeSurvives(t *testing.T) {
	names := []string{
		"db-2024-01-01_01-00.sql",
		"db-2024-01-01_23-00.sql",
		"db-2024-01-02_04-00.sql",
	}
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(2))})

	plan, _ := r.Plan("/backups", names)
	byName := decisionsByName(plan)
	assert.Equal(t, Discard, byName["db-2024-01-01_01-00.sql"].Action)
	assert.Equal(t, Keep, byName["db-2024-01-01_23-00.sql"].Action)
	assert.Equal(t, Keep, byName["db-2024-01-02_04-00.sql"].Action)
}

func TestPlanIdenticalTimestampsFirstSeenWins(t *testing.T) {
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(1))})

	plan, _ := r.Plan("/backups", []string{"b-20240101.tar", "a-20240101.tar"})
	byName := decisionsByName(plan)
	assert.Equal(t, Keep, byName["a-20240101.tar"].Action)
	assert.Equal(t, Discard, byName["b-20240101.tar"].Action)
}

func TestPlanUnlimitedRetention(t *testing.T) {
	names := []string{"backup-20200101.tar", "backup-20210101.tar", "backup-20220101.tar", "backup-20220601.tar"}
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Yearly, Always())})

	plan, _ := r.Plan("/backups", names)
	byName := decisionsByName(plan)
	assert.Equal(t, Keep, byName["backup-20200101.tar"].Action)
	assert.Equal(t, Keep, byName["backup-20210101.tar"].Action)
	assert.Equal(t, Discard, byName["backup-20220101.tar"].Action, "only the latest of 2022 represents the year")
	assert.Equal(t, Keep, byName["backup-20220601.tar"].Action)
}

func TestPlanHourlyAndWeekly(t *testing.T) {
	names := []string{
		"snap-2024-03-04T10:00",
		"snap-2024-03-04T10:30",
		"snap-2024-03-11T09:00",
		"snap-2024-03-11T10:00",
		"snap-2024-03-11T11:00",
	}
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Hourly, Count(2)).With(Weekly, Count(2))})

	plan, _ := r.Plan("/backups", names)
	byName := decisionsByName(plan)
	assert.Equal(t, Discard, byName["snap-2024-03-04T10:00"].Action)
	assert.Equal(t, []string{"weekly 2024-W10"}, byName["snap-2024-03-04T10:30"].Reasons)
	assert.Equal(t, Discard, byName["snap-2024-03-11T09:00"].Action)
	assert.Equal(t, []string{"hourly 2024-03-11T10"}, byName["snap-2024-03-11T10:00"].Reasons)
	assert.Equal(t, []string{ReasonMostRecent, "hourly 2024-03-11T11", "weekly 2024-W11"}, byName["snap-2024-03-11T11:00"].Reasons)
}

func TestPlanIsIdempotent(t *testing.T) {
	names := dailyNames(time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC), 60)
	names = append(names, "nightly.tar", "backup-20231225-extra.tar")
	scheme := Scheme{}.With(Daily, Count(7)).With(Weekly, Count(4)).With(Monthly, Always())
	r := newTestRotator(t, Options{Scheme: scheme})

	first, _ := r.Plan("/backups", names)
	second, _ := r.Plan("/backups", names)
	assert.Equal(t, first, second)

	shuffled := make([]string, len(names))
	copy(shuffled, names)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	third, _ := r.Plan("/backups", shuffled)
	assert.Equal(t, first, third, "listing order must not change the plan")
}

func TestPlanExcludeRemovesNameEntirely(t *testing.T) {
	r := newTestRotator(t, Options{
		Scheme:  Scheme{}.With(Daily, Count(1)),
		Exclude: []string{"*.tmp"},
	})

	plan, excluded := r.Plan("/backups", []string{"x.tmp.20240101", "backup-20240102.tar"})
	require.Len(t, excluded, 1)
	assert.Equal(t, "x.tmp.20240101", excluded[0].Name)
	_, present := decisionsByName(plan)["x.tmp.20240101"]
	assert.False(t, present, "excluded names are absent from the plan")
	require.Len(t, plan.Decisions, 1)
}

func TestPlanIncludeAndExclude(t *testing.T) {
	r := newTestRotator(t, Options{
		Scheme:  Scheme{}.With(Daily, Count(1)),
		Include: []string{"mysql-*"},
		Exclude: []string{"mysql-*-manual*"},
	})

	plan, excluded := r.Plan("/backups", []string{
		"mysql-20240101.sql",
		"mysql-20240102-manual.sql",
		"postgres-20240101.sql",
		"mysql-20240103.sql",
	})
	assert.Len(t, excluded, 2)
	byName := decisionsByName(plan)
	assert.Len(t, byName, 2)
	assert.Equal(t, Discard, byName["mysql-20240101.sql"].Action)
	assert.Equal(t, Keep, byName["mysql-20240103.sql"].Action)
}

func TestPlanDryRunVerb(t *testing.T) {
	r := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(1)), DryRun: true})
	plan, _ := r.Plan("/backups", []string{"backup-20240101.tar", "backup-20240102.tar"})

	assert.True(t, plan.DryRun)
	assert.Equal(t, "would discard", plan.Verb())
	assert.Len(t, plan.Discarded(), 1)

	live := newTestRotator(t, Options{Scheme: Scheme{}.With(Daily, Count(1))})
	livePlan, _ := live.Plan("/backups", []string{"backup-20240101.tar", "backup-20240102.tar"})
	assert.Equal(t, plan.Decisions, livePlan.Decisions, "dry run computes the same decisions")
	assert.Equal(t, "discard", livePlan.Verb())
}

func TestNewRotatorRejectsBadPattern(t *testing.T) {
	_, err := NewRotator(Options{Include: []string{"backup-["}})
	var patErr *PatternError
	require.ErrorAs(t, err, &patErr)
	assert.Equal(t, "backup-[", patErr.Pattern)
}
