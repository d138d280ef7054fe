package contest

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a contest id has never been seen.
var ErrNotFound = errors.New("contest not found")

// Store persists contests, entrants, and lifecycle state.
//
// Upsert semantics are insert-if-absent, update-otherwise. SaveClassified
// writes a contest record together with its roster as one logical unit so a
// failure partway cannot leave a contest marked classified without the
// entrants that justified the decision.
type Store interface {
	// EnsureContest inserts a newly discovered contest in the unprocessed
	// state. An existing record is left untouched.
	EnsureContest(ctx context.Context, c Contest) error
	UpsertContest(ctx context.Context, c Contest) error
	UpsertEntrants(ctx context.Context, contestID string, entrants []Entrant) error
	SaveClassified(ctx context.Context, d Detail) error
	UnprocessedContests(ctx context.Context) ([]Contest, error)
	Entrants(ctx context.Context, contestID string) ([]Entrant, error)
	UpdateStatus(ctx context.Context, contestID string, status Status) error
	// ContestStatus returns the stored lifecycle state, or ErrNotFound.
	ContestStatus(ctx context.Context, contestID string) (Status, error)
	Close()
}

// Notifier emits a human-readable alert for a favorable contest.
type Notifier interface {
	Notify(ctx context.Context, c Contest, entrants []Entrant) error
}

// ListingFetcher retrieves the current contest set per tracked category.
type ListingFetcher interface {
	FetchListing(ctx context.Context, category string) ([]Contest, error)
	FetchAllListings(ctx context.Context) map[string][]Contest
}

// DetailFetcher hydrates a single contest with metadata and roster.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, contestID string) (*Detail, error)
}

// DetailBatchFetcher runs detail fetches across a bounded worker pool.
// Results arrive in completion order with at most one entry per id.
type DetailBatchFetcher interface {
	FetchDetails(ctx context.Context, contestIDs []string) []Detail
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
