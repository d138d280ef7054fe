package contest

// Classify maps a roster and capacity onto a lifecycle status.
//
// The decision is a pure function of its inputs and is safe to re-run on
// every poll:
//
//  1. Any blacklisted username forces the ratio to 1.0 and the status to
//     scooped, regardless of the rest of the roster.
//  2. Otherwise the roster is analyzed with the contest capacity and the
//     resulting highest-experience ratio is compared against the
//     size-appropriate threshold: below it the contest is ready to enter,
//     at or above it the contest is processed.
func Classify(entrants []Entrant, capacity int, blacklist Blacklist, thresholds Thresholds) (Analysis, Status) {
	analysis := Analyze(entrants, capacity)

	for _, e := range entrants {
		if blacklist.Contains(e.Username) {
			analysis.HighestExperienceRatio = 1.0
			return analysis, StatusScooped
		}
	}

	if analysis.HighestExperienceRatio < thresholds.For(capacity) {
		return analysis, StatusReadyToEnter
	}
	return analysis, StatusProcessed
}
