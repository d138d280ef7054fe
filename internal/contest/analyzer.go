package contest

// Analysis is the skill-composition score of a roster. Distribution values
// sum to 1.0 whenever the denominator is positive.
type Analysis struct {
	HighestExperienceRatio float64
	Distribution           map[ExperienceLevel]float64
}

// Analyze scores a roster against the contest capacity.
//
// When capacity exceeds the observed roster, every unfilled seat is counted
// as a highest-tier entrant, so the score never overstates how favorable a
// partially filled contest is. When capacity is zero or negative the
// observed roster size is the denominator and no projection is applied.
// An empty roster with no capacity yields a zero ratio and an empty
// distribution rather than a division by zero.
func Analyze(entrants []Entrant, capacity int) Analysis {
	var counts [4]int
	for _, e := range entrants {
		level := e.ExperienceLevel
		if level < ExperienceBeginner || level > ExperienceHighest {
			level = ExperienceBeginner
		}
		counts[level]++
	}

	denom := len(entrants)
	if capacity > 0 {
		if capacity > len(entrants) {
			counts[ExperienceHighest] += capacity - len(entrants)
		}
		if capacity > denom {
			denom = capacity
		}
	}
	if denom == 0 {
		return Analysis{}
	}

	dist := make(map[ExperienceLevel]float64, len(counts))
	for level, count := range counts {
		if count == 0 {
			continue
		}
		dist[ExperienceLevel(level)] = float64(count) / float64(denom)
	}

	return Analysis{
		HighestExperienceRatio: float64(counts[ExperienceHighest]) / float64(denom),
		Distribution:           dist,
	}
}
