// Package runner drives the periodic discover-classify-notify cycle.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
	"github.com/kkeeling/dk-contest-finder/internal/metrics"
)

// Params collects the runner's collaborators and tuning.
type Params struct {
	Store      contest.Store
	Listings   contest.ListingFetcher
	Details    contest.DetailBatchFetcher
	Notifier   contest.Notifier
	Clock      contest.Clock
	Logger     *zap.Logger
	Criteria   contest.Criteria
	Blacklist  contest.Blacklist
	Thresholds contest.Thresholds
	Interval   time.Duration
}

// Runner periodically discovers contests, hydrates their rosters,
// classifies them, and alerts on favorable transitions. Cycles never
// overlap; a cycle that outlives the interval simply delays the next one.
type Runner struct {
	store      contest.Store
	listings   contest.ListingFetcher
	details    contest.DetailBatchFetcher
	notifier   contest.Notifier
	clock      contest.Clock
	logger     *zap.Logger
	criteria   contest.Criteria
	blacklist  contest.Blacklist
	thresholds contest.Thresholds
	interval   time.Duration
}

// New builds a Runner from params.
func New(p Params) *Runner {
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Runner{
		store:      p.Store,
		listings:   p.Listings,
		details:    p.Details,
		notifier:   p.Notifier,
		clock:      p.Clock,
		logger:     p.Logger,
		criteria:   p.Criteria,
		blacklist:  p.Blacklist,
		thresholds: p.Thresholds,
		interval:   interval,
	}
}

// Run executes one cycle immediately, then one per interval until the
// context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.RunCycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle performs a single full pass. Failures on individual contests
// are logged and skipped; nothing inside a cycle can take the process down.
func (r *Runner) RunCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	logger := r.logger.With(zap.String("cycle_id", cycleID))
	start := r.clock.Now()
	outcome := "ok"

	defer func() {
		if rec := recover(); rec != nil {
			outcome = "panic"
			logger.Error("cycle panicked", zap.Any("error", rec))
		}
		metrics.ObserveCycle(outcome, r.clock.Now().Sub(start))
	}()

	logger.Info("cycle started")

	attempted := r.sweepListings(ctx, logger)
	if ctx.Err() != nil {
		outcome = "canceled"
		return
	}
	r.sweepBacklog(ctx, logger, attempted)
	if ctx.Err() != nil {
		outcome = "canceled"
		return
	}

	logger.Info("cycle finished", zap.Duration("elapsed", r.clock.Now().Sub(start)))
}

// sweepListings fetches the lobby, records eligible contests, hydrates and
// classifies them. It returns the set of contest ids a detail fetch was
// attempted for, so the backlog sweep does not retry them within the cycle.
func (r *Runner) sweepListings(ctx context.Context, logger *zap.Logger) map[string]struct{} {
	attempted := make(map[string]struct{})
	byID := make(map[string]contest.Contest)
	var ids []string

	for category, listed := range r.listings.FetchAllListings(ctx) {
		metrics.ObserveListing(category, len(listed))
		eligible := contest.ApplyFilters(listed, r.criteria)
		logger.Info("listing fetched",
			zap.String("category", category),
			zap.Int("total", len(listed)),
			zap.Int("eligible", len(eligible)))

		for _, c := range eligible {
			if _, dup := byID[c.ID]; dup {
				continue
			}
			if err := r.store.EnsureContest(ctx, c); err != nil {
				logger.Warn("contest record failed",
					zap.String("contest_id", c.ID), zap.Error(err))
				continue
			}
			byID[c.ID] = c
			ids = append(ids, c.ID)
		}
	}

	for _, id := range ids {
		attempted[id] = struct{}{}
	}

	details := r.details.FetchDetails(ctx, ids)
	r.observeFetches(len(ids), len(details))
	for _, d := range details {
		r.processDetail(ctx, logger, d, byID[d.ID])
	}
	return attempted
}

// sweepBacklog re-attempts stored contests still awaiting classification.
// Contests whose detail fetch failed this cycle stay unprocessed and are
// retried on the next one.
func (r *Runner) sweepBacklog(ctx context.Context, logger *zap.Logger, attempted map[string]struct{}) {
	backlog, err := r.store.UnprocessedContests(ctx)
	if err != nil {
		logger.Error("backlog listing failed", zap.Error(err))
		return
	}

	byID := make(map[string]contest.Contest, len(backlog))
	var ids []string
	for _, c := range backlog {
		if _, done := attempted[c.ID]; done {
			continue
		}
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return
	}
	logger.Info("backlog sweep", zap.Int("contests", len(ids)))

	details := r.details.FetchDetails(ctx, ids)
	r.observeFetches(len(ids), len(details))
	for _, d := range details {
		r.processDetail(ctx, logger, d, byID[d.ID])
	}
}

// processDetail classifies one hydrated contest, persists the outcome, and
// alerts when the contest transitions into the favorable state. An alert
// fires at most once per transition: a contest already favorable before
// this cycle is saved but not re-announced.
func (r *Runner) processDetail(ctx context.Context, logger *zap.Logger, d contest.Detail, listed contest.Contest) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("contest processing panicked",
				zap.String("contest_id", d.ID), zap.Any("error", rec))
		}
	}()

	merged := mergeListing(d, listed)

	previous, err := r.store.ContestStatus(ctx, merged.ID)
	if err != nil && !errors.Is(err, contest.ErrNotFound) {
		logger.Warn("status lookup failed",
			zap.String("contest_id", merged.ID), zap.Error(err))
		return
	}

	analysis, status := contest.Classify(merged.Entrants, merged.MaximumEntries, r.blacklist, r.thresholds)
	merged.Status = status
	merged.HighestExperienceRatio = analysis.HighestExperienceRatio
	merged.ExperienceDistribution = analysis.Distribution

	if err := r.store.SaveClassified(ctx, merged); err != nil {
		logger.Error("classification save failed",
			zap.String("contest_id", merged.ID), zap.Error(err))
		return
	}
	metrics.ObserveClassification(string(status))
	logger.Info("contest classified",
		zap.String("contest_id", merged.ID),
		zap.String("status", string(status)),
		zap.Float64("ratio", merged.HighestExperienceRatio))

	if status != contest.StatusReadyToEnter || previous == contest.StatusReadyToEnter {
		return
	}
	if err := r.notifier.Notify(ctx, merged.Contest, merged.Entrants); err != nil {
		metrics.ObserveNotification("error")
		logger.Error("notification failed",
			zap.String("contest_id", merged.ID), zap.Error(err))
		return
	}
	metrics.ObserveNotification("sent")
}

func (r *Runner) observeFetches(requested, fetched int) {
	for i := 0; i < fetched; i++ {
		metrics.ObserveDetailFetch("ok")
	}
	for i := fetched; i < requested; i++ {
		metrics.ObserveDetailFetch("failed")
	}
}

// mergeListing fills detail fields the contest page does not carry from the
// listing snapshot, so a save never blanks out data the lobby reported.
func mergeListing(d contest.Detail, listed contest.Contest) contest.Detail {
	if d.ID == "" {
		d.ID = listed.ID
	}
	if d.Title == "" {
		d.Title = listed.Title
	}
	if d.GameType == "" {
		d.GameType = listed.GameType
	}
	if d.EntryFee == 0 {
		d.EntryFee = listed.EntryFee
	}
	if d.TotalPrizes == 0 {
		d.TotalPrizes = listed.TotalPrizes
	}
	if d.MaximumEntries == 0 {
		d.MaximumEntries = listed.MaximumEntries
	}
	if d.CurrentEntries == 0 {
		d.CurrentEntries = listed.CurrentEntries
	}
	for i := range d.Entrants {
		d.Entrants[i].ContestID = d.ID
	}
	return d
}
