package contest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func roster(levels ...ExperienceLevel) []Entrant {
	out := make([]Entrant, 0, len(levels))
	for i, level := range levels {
		out = append(out, Entrant{
			ContestID:       "c-1",
			Username:        string(rune('a' + i)),
			ExperienceLevel: level,
		})
	}
	return out
}

func TestAnalyzeMixedRosterWithoutCapacity(t *testing.T) {
	t.Parallel()

	entrants := roster(ExperienceBeginner, ExperienceLow, ExperienceMedium, ExperienceHighest, ExperienceHighest)

	got := Analyze(entrants, 0)

	require.InDelta(t, 0.4, got.HighestExperienceRatio, 1e-9)
	require.InDelta(t, 0.2, got.Distribution[ExperienceBeginner], 1e-9)
	require.InDelta(t, 0.2, got.Distribution[ExperienceLow], 1e-9)
	require.InDelta(t, 0.2, got.Distribution[ExperienceMedium], 1e-9)
	require.InDelta(t, 0.4, got.Distribution[ExperienceHighest], 1e-9)
}

func TestAnalyzeProjectsUnfilledSeatsAsHighestTier(t *testing.T) {
	t.Parallel()

	entrants := roster(ExperienceBeginner, ExperienceLow)

	got := Analyze(entrants, 10)

	// 8 open seats counted as tier 3 out of a capacity of 10.
	require.InDelta(t, 0.8, got.HighestExperienceRatio, 1e-9)
	require.InDelta(t, 0.1, got.Distribution[ExperienceBeginner], 1e-9)
	require.InDelta(t, 0.1, got.Distribution[ExperienceLow], 1e-9)
	require.InDelta(t, 0.8, got.Distribution[ExperienceHighest], 1e-9)
}

func TestAnalyzeFullSmallContest(t *testing.T) {
	t.Parallel()

	entrants := roster(ExperienceBeginner, ExperienceLow, ExperienceMedium)

	got := Analyze(entrants, 3)

	require.Zero(t, got.HighestExperienceRatio)
	require.NotContains(t, got.Distribution, ExperienceHighest)
}

func TestAnalyzeEmptyRosterNoCapacity(t *testing.T) {
	t.Parallel()

	got := Analyze(nil, 0)

	require.Zero(t, got.HighestExperienceRatio)
	require.Empty(t, got.Distribution)
}

func TestAnalyzeDistributionSumsToOne(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		entrants []Entrant
		capacity int
	}{
		{"full field", roster(ExperienceBeginner, ExperienceHighest, ExperienceMedium), 3},
		{"partial field", roster(ExperienceLow), 7},
		{"no capacity", roster(ExperienceLow, ExperienceLow, ExperienceHighest), 0},
		{"empty with capacity", nil, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Analyze(tc.entrants, tc.capacity)
			require.GreaterOrEqual(t, got.HighestExperienceRatio, 0.0)
			require.LessOrEqual(t, got.HighestExperienceRatio, 1.0)
			sum := 0.0
			for _, v := range got.Distribution {
				sum += v
			}
			require.InDelta(t, 1.0, sum, 1e-9)
		})
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	t.Parallel()

	entrants := roster(ExperienceHighest, ExperienceBeginner, ExperienceMedium)

	first := Analyze(entrants, 5)
	second := Analyze(entrants, 5)

	require.True(t, math.Abs(first.HighestExperienceRatio-second.HighestExperienceRatio) < 1e-12)
	require.Equal(t, first.Distribution, second.Distribution)
}
