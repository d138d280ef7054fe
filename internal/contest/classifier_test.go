package contest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyBlacklistOverridesScoring(t *testing.T) {
	t.Parallel()

	entrants := []Entrant{
		{ContestID: "c-1", Username: "harmless", ExperienceLevel: ExperienceBeginner},
		{ContestID: "c-1", Username: "SharkHunter", ExperienceLevel: ExperienceBeginner},
	}
	blacklist := NewBlacklist([]string{"sharkhunter"})

	analysis, status := Classify(entrants, 2, blacklist, DefaultThresholds())

	require.Equal(t, StatusScooped, status)
	require.InDelta(t, 1.0, analysis.HighestExperienceRatio, 1e-9)
}

func TestClassifyFullSmallContestIsReady(t *testing.T) {
	t.Parallel()

	entrants := roster(ExperienceBeginner, ExperienceLow, ExperienceMedium)

	analysis, status := Classify(entrants, 3, nil, DefaultThresholds())

	require.Equal(t, StatusReadyToEnter, status)
	require.Zero(t, analysis.HighestExperienceRatio)
}

func TestClassifyThresholdTable(t *testing.T) {
	t.Parallel()

	thresholds := DefaultThresholds()

	cases := []struct {
		name     string
		capacity int
		tier3    int
		filled   int
		want     Status
	}{
		// 2/3 = 0.667 < 0.70
		{"size 3 below", 3, 2, 3, StatusReadyToEnter},
		// 3/3 = 1.0 >= 0.70
		{"size 3 at or above", 3, 3, 3, StatusProcessed},
		// 2/4 = 0.50 < 0.51
		{"size 4 below", 4, 2, 4, StatusReadyToEnter},
		// 3/4 = 0.75 >= 0.51
		{"size 4 above", 4, 3, 4, StatusProcessed},
		// 1/5 = 0.20 < 0.40
		{"size 5 below", 5, 1, 5, StatusReadyToEnter},
		// 2/5 = 0.40 >= 0.40
		{"size 5 boundary", 5, 2, 5, StatusProcessed},
		// 2/10 = 0.20 < 0.30 default
		{"default below", 10, 2, 10, StatusReadyToEnter},
		// 3/10 = 0.30 >= 0.30 default
		{"default boundary", 10, 3, 10, StatusProcessed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entrants := make([]Entrant, 0, tc.filled)
			for i := 0; i < tc.filled; i++ {
				level := ExperienceBeginner
				if i < tc.tier3 {
					level = ExperienceHighest
				}
				entrants = append(entrants, Entrant{
					ContestID:       "c-1",
					Username:        string(rune('a' + i)),
					ExperienceLevel: level,
				})
			}

			_, status := Classify(entrants, tc.capacity, nil, thresholds)
			require.Equal(t, tc.want, status)
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	entrants := roster(ExperienceHighest, ExperienceLow, ExperienceMedium)
	blacklist := NewBlacklist([]string{"nobody-here"})

	a1, s1 := Classify(entrants, 6, blacklist, DefaultThresholds())
	a2, s2 := Classify(entrants, 6, blacklist, DefaultThresholds())

	require.Equal(t, s1, s2)
	require.Equal(t, a1, a2)
}

func TestBlacklistMatchIsCaseInsensitiveAndExact(t *testing.T) {
	t.Parallel()

	blacklist := NewBlacklist([]string{"ProPlayer "})

	require.True(t, blacklist.Contains("proplayer"))
	require.True(t, blacklist.Contains("PROPLAYER"))
	require.False(t, blacklist.Contains("proplayer2"))
}
