package fetch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
	"github.com/kkeeling/dk-contest-finder/internal/metrics"
)

// defaultPoolWidth bounds concurrent detail fetches when no width is
// configured.
const defaultPoolWidth = 5

// DetailPool fans detail fetches out over a fixed-size worker pool.
type DetailPool struct {
	fetcher contest.DetailFetcher
	width   int
	logger  *zap.Logger
}

// NewDetailPool builds a DetailPool of the given width.
func NewDetailPool(fetcher contest.DetailFetcher, width int, logger *zap.Logger) *DetailPool {
	if width <= 0 {
		width = defaultPoolWidth
	}
	return &DetailPool{
		fetcher: fetcher,
		width:   width,
		logger:  logger,
	}
}

// FetchDetails hydrates the given contests in parallel and returns the
// results in completion order. A failed or vetoed fetch is logged and
// excluded; one contest's failure never cancels its siblings.
func (p *DetailPool) FetchDetails(ctx context.Context, contestIDs []string) []contest.Detail {
	if len(contestIDs) == 0 {
		return nil
	}

	jobs := make(chan string)
	results := make(chan contest.Detail, len(contestIDs))

	var wg sync.WaitGroup
	for i := 0; i < p.width; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				p.fetchOne(ctx, id, results)
			}
		}()
	}

feed:
	for _, id := range contestIDs {
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]contest.Detail, 0, len(contestIDs))
	for d := range results {
		out = append(out, d)
	}
	return out
}

func (p *DetailPool) fetchOne(ctx context.Context, contestID string, results chan<- contest.Detail) {
	metrics.IncContestsInFlight()
	defer metrics.DecContestsInFlight()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("detail fetch panicked",
				zap.String("contest_id", contestID), zap.Any("panic", r))
		}
	}()

	detail, err := p.fetcher.FetchDetail(ctx, contestID)
	if err != nil {
		p.logger.Warn("detail fetch failed",
			zap.String("contest_id", contestID), zap.Error(err))
		return
	}
	if detail == nil {
		return
	}
	results <- *detail
}
