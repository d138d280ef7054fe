package contest

import "strings"

// excludedTitleMarkers disqualify a contest outright. Promotional and
// novelty contests carry these markers in their titles.
var excludedTitleMarkers = []string{
	"satellite",
	"qualifier",
	"free entry",
	"casual",
}

// Criteria holds the configured entry filters. A zero value disables the
// corresponding predicate; the exclusion list always applies.
type Criteria struct {
	MaxEntrants  int
	MaxEntryFee  float64
	TitleKeyword string
	GameTypes    []string
}

// ByEntrantCap keeps contests whose entrant capacity is at or below the cap.
func ByEntrantCap(contests []Contest, maxEntrants int) []Contest {
	return keep(contests, func(c Contest) bool {
		return c.MaximumEntries <= maxEntrants
	})
}

// ByTitleKeyword keeps contests whose title contains the keyword,
// case-insensitively.
func ByTitleKeyword(contests []Contest, keyword string) []Contest {
	needle := strings.ToLower(keyword)
	return keep(contests, func(c Contest) bool {
		return strings.Contains(strings.ToLower(c.Title), needle)
	})
}

// ByEntryFee keeps contests whose entry fee is at or below the ceiling.
func ByEntryFee(contests []Contest, maxFee float64) []Contest {
	return keep(contests, func(c Contest) bool {
		return c.EntryFee <= maxFee
	})
}

// ByGameType keeps contests whose category is in the allow-list.
func ByGameType(contests []Contest, allowed []string) []Contest {
	set := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		set[strings.ToUpper(t)] = struct{}{}
	}
	return keep(contests, func(c Contest) bool {
		_, ok := set[strings.ToUpper(c.GameType)]
		return ok
	})
}

// ApplyFilters reduces a contest set to the entries matching every
// configured predicate. Predicates compose by conjunction; historical
// variants of this pipeline used a union of the entrant-cap and keyword
// filters, which re-admitted contests a stricter filter had removed, so
// conjunction is the documented choice here. Output preserves input order
// and never repeats an id.
func ApplyFilters(contests []Contest, criteria Criteria) []Contest {
	seen := make(map[string]struct{}, len(contests))
	out := make([]Contest, 0, len(contests))
	for _, c := range contests {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if titleExcluded(c.Title) {
			continue
		}
		if criteria.MaxEntrants > 0 && c.MaximumEntries > criteria.MaxEntrants {
			continue
		}
		if criteria.MaxEntryFee > 0 && c.EntryFee > criteria.MaxEntryFee {
			continue
		}
		if criteria.TitleKeyword != "" &&
			!strings.Contains(strings.ToLower(c.Title), strings.ToLower(criteria.TitleKeyword)) {
			continue
		}
		if len(criteria.GameTypes) > 0 && !typeAllowed(c.GameType, criteria.GameTypes) {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func titleExcluded(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range excludedTitleMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func typeAllowed(gameType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.EqualFold(gameType, t) {
			return true
		}
	}
	return false
}

func keep(contests []Contest, pred func(Contest) bool) []Contest {
	out := make([]Contest, 0, len(contests))
	for _, c := range contests {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}
