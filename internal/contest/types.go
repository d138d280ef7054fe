// Package contest defines core domain types shared across subsystems.
package contest

import "strings"

// Status represents the lifecycle state of a tracked contest.
type Status string

// Status values persisted in the contest store.
const (
	StatusUnprocessed  Status = "unprocessed"
	StatusReadyToEnter Status = "ready_to_enter"
	StatusProcessed    Status = "processed"
	StatusScooped      Status = "scooped"
)

// ExperienceLevel is the ordinal skill tier of an entrant, 0 through 3.
type ExperienceLevel int

// Skill tiers, lowest to highest.
const (
	ExperienceBeginner ExperienceLevel = iota
	ExperienceLow
	ExperienceMedium
	ExperienceHighest
)

// experienceLabels maps collaborator-supplied experience indicators to tiers.
// Unrecognized labels fall back to beginner.
var experienceLabels = map[string]ExperienceLevel{
	"beginner": ExperienceBeginner,
	"low":      ExperienceLow,
	"medium":   ExperienceMedium,
	"high":     ExperienceHighest,
}

// ParseExperienceLevel converts an upstream experience label into a tier.
func ParseExperienceLevel(label string) ExperienceLevel {
	level, ok := experienceLabels[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return ExperienceBeginner
	}
	return level
}

// Contest is a discoverable competitive event with an entry fee, a prize
// pool, and an entrant capacity. The ID is assigned upstream and stable
// across polls.
type Contest struct {
	ID                     string                      `json:"id"`
	Title                  string                      `json:"title"`
	EntryFee               float64                     `json:"entry_fee"`
	TotalPrizes            float64                     `json:"total_prizes"`
	CurrentEntries         int                         `json:"current_entries"`
	MaximumEntries         int                         `json:"maximum_entries"`
	GameType               string                      `json:"game_type"`
	Status                 Status                      `json:"status"`
	HighestExperienceRatio float64                     `json:"highest_experience_ratio"`
	ExperienceDistribution map[ExperienceLevel]float64 `json:"experience_distribution,omitempty"`
}

// Entrant is a participant in a contest. Uniqueness within a contest is the
// (ContestID, Username) pair; username comparison against the blacklist is
// case-insensitive.
type Entrant struct {
	ContestID       string          `json:"contest_id"`
	Username        string          `json:"username"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
}

// Detail pairs a hydrated contest with the roster retrieved alongside it.
type Detail struct {
	Contest
	Entrants []Entrant
}

// Blacklist is a set of usernames whose presence in a roster forces the
// worst-case classification. Lookups are case-insensitive.
type Blacklist map[string]struct{}

// NewBlacklist builds a Blacklist from the configured usernames.
func NewBlacklist(usernames []string) Blacklist {
	b := make(Blacklist, len(usernames))
	for _, name := range usernames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		b[name] = struct{}{}
	}
	return b
}

// Contains reports whether username is blacklisted.
func (b Blacklist) Contains(username string) bool {
	_, ok := b[strings.ToLower(strings.TrimSpace(username))]
	return ok
}

// Thresholds maps a contest's entrant capacity to the highest-experience
// ratio above which the contest is no longer worth entering. Small fields
// tolerate a higher ratio before being deprioritized.
type Thresholds struct {
	BySize  map[int]float64
	Default float64
}

// DefaultThresholds returns the production threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BySize:  map[int]float64{3: 0.70, 4: 0.51, 5: 0.40},
		Default: 0.30,
	}
}

// For returns the threshold for the given capacity.
func (t Thresholds) For(capacity int) float64 {
	if v, ok := t.BySize[capacity]; ok {
		return v
	}
	return t.Default
}
