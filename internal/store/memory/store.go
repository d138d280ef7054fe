// Package memory provides an in-memory contest store for development and
// testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
)

// Store keeps contests and entrants in process memory. It mirrors the
// Postgres store's semantics, including the not-found sentinel and the
// all-or-nothing SaveClassified.
type Store struct {
	mu       sync.RWMutex
	contests map[string]contest.Contest
	entrants map[string]map[string]contest.Entrant
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		contests: make(map[string]contest.Contest),
		entrants: make(map[string]map[string]contest.Entrant),
	}
}

// EnsureContest stores a newly discovered contest; existing records are
// left untouched.
func (s *Store) EnsureContest(_ context.Context, c contest.Contest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contests[c.ID]; exists {
		return nil
	}
	s.contests[c.ID] = c
	return nil
}

// UpsertContest inserts or replaces a contest record.
func (s *Store) UpsertContest(_ context.Context, c contest.Contest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[c.ID] = c
	return nil
}

// UpsertEntrants inserts or updates roster rows for a contest.
func (s *Store) UpsertEntrants(_ context.Context, contestID string, entrants []contest.Entrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeEntrantsLocked(contestID, entrants)
	return nil
}

// SaveClassified writes the contest and its roster together.
func (s *Store) SaveClassified(_ context.Context, d contest.Detail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[d.Contest.ID] = d.Contest
	s.storeEntrantsLocked(d.Contest.ID, d.Entrants)
	return nil
}

// UnprocessedContests lists contests still awaiting classification.
func (s *Store) UnprocessedContests(_ context.Context) ([]contest.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []contest.Contest
	for _, c := range s.contests {
		if c.Status == contest.StatusUnprocessed {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Entrants returns the stored roster for a contest, or ErrNotFound when
// the contest id has never been seen.
func (s *Store) Entrants(_ context.Context, contestID string) ([]contest.Entrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.contests[contestID]; !ok {
		return nil, contest.ErrNotFound
	}
	roster := s.entrants[contestID]
	out := make([]contest.Entrant, 0, len(roster))
	for _, e := range roster {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// UpdateStatus moves a contest to the given lifecycle state.
func (s *Store) UpdateStatus(_ context.Context, contestID string, status contest.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contests[contestID]
	if !ok {
		return contest.ErrNotFound
	}
	c.Status = status
	s.contests[contestID] = c
	return nil
}

// ContestStatus returns the stored lifecycle state.
func (s *Store) ContestStatus(_ context.Context, contestID string) (contest.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	if !ok {
		return "", contest.ErrNotFound
	}
	return c.Status, nil
}

// Contest returns a stored contest record, for assertions in tests.
func (s *Store) Contest(contestID string) (contest.Contest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	return c, ok
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

func (s *Store) storeEntrantsLocked(contestID string, entrants []contest.Entrant) {
	roster, ok := s.entrants[contestID]
	if !ok {
		roster = make(map[string]contest.Entrant)
		s.entrants[contestID] = roster
	}
	for _, e := range entrants {
		e.ContestID = contestID
		roster[e.Username] = e
	}
}
