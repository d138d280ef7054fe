package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
)

// ClientConfig controls the listing and detail clients.
type ClientConfig struct {
	// ListingURL is the lobby endpoint; the category is appended as a
	// query parameter.
	ListingURL string
	// DetailURL is a format string receiving the contest id.
	DetailURL  string
	UserAgent  string
	Timeout    time.Duration
	Categories []string
}

// listingPayload mirrors the collaborator's lobby response. Only the
// semantic fields the pipeline needs are mapped; anything missing resolves
// to its zero value rather than propagating into scoring math.
type listingPayload struct {
	Contests []contestPayload `json:"Contests"`
}

type contestPayload struct {
	ID             json.Number `json:"id"`
	Title          string      `json:"title"`
	EntryFee       float64     `json:"entry_fee"`
	TotalPrizes    float64     `json:"total_prizes"`
	CurrentEntries int         `json:"current_entries"`
	MaximumEntries int         `json:"maximum_entries"`
	GameType       string      `json:"game_type"`
}

func (p contestPayload) toContest(category string) contest.Contest {
	gameType := p.GameType
	if gameType == "" {
		gameType = category
	}
	return contest.Contest{
		ID:             p.ID.String(),
		Title:          p.Title,
		EntryFee:       p.EntryFee,
		TotalPrizes:    p.TotalPrizes,
		CurrentEntries: p.CurrentEntries,
		MaximumEntries: p.MaximumEntries,
		GameType:       gameType,
		Status:         contest.StatusUnprocessed,
	}
}

// ListingClient retrieves the current contest set per category from the
// lobby feed.
type ListingClient struct {
	cfg      ClientConfig
	throttle *Throttle
	gate     CrawlGate
	base     *colly.Collector
	logger   *zap.Logger
}

// NewListingClient builds a ListingClient sharing the given throttle and
// crawl gate with the rest of the pipeline.
func NewListingClient(cfg ClientConfig, throttle *Throttle, gate CrawlGate, logger *zap.Logger) *ListingClient {
	return &ListingClient{
		cfg:      cfg,
		throttle: throttle,
		gate:     gate,
		base:     newCollector(cfg),
		logger:   logger,
	}
}

func newCollector(cfg ClientConfig) *colly.Collector {
	c := colly.NewCollector(colly.Async(false))
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	// The crawl gate vetoes requests before the throttle; colly's own
	// robots handling would fetch robots.txt a second time.
	c.IgnoreRobotsTxt = true
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	c.SetRequestTimeout(timeout)
	return c
}

// FetchListing issues one throttled request for the category's contests.
// A crawl-policy veto returns an empty set without error; transport
// failures are wrapped and reported so the caller can record them.
func (c *ListingClient) FetchListing(ctx context.Context, category string) ([]contest.Contest, error) {
	listingURL := fmt.Sprintf("%s?sport=%s", c.cfg.ListingURL, url.QueryEscape(category))

	if !c.gate.Allowed(ctx, listingURL) {
		c.logger.Info("listing request vetoed by crawl policy",
			zap.String("category", category), zap.String("url", listingURL))
		return nil, nil
	}
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := fetchBody(c.base, listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %q: %w", category, err)
	}

	var payload listingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode listing %q: %w", category, err)
	}

	contests := make([]contest.Contest, 0, len(payload.Contests))
	for _, p := range payload.Contests {
		contests = append(contests, p.toContest(category))
	}
	return contests, nil
}

// FetchAllListings fans FetchListing out over the tracked categories,
// sequentially so the shared throttle stays meaningful. A category's
// failure yields an empty slice for that category and never aborts the
// rest of the cycle.
func (c *ListingClient) FetchAllListings(ctx context.Context) map[string][]contest.Contest {
	all := make(map[string][]contest.Contest, len(c.cfg.Categories))
	for _, category := range c.cfg.Categories {
		contests, err := c.FetchListing(ctx, category)
		if err != nil {
			c.logger.Warn("listing fetch failed",
				zap.String("category", category), zap.Error(err))
			all[category] = nil
			continue
		}
		all[category] = contests
	}
	return all
}

// fetchBody runs a single synchronous GET through a cloned collector and
// returns the response body.
func fetchBody(base *colly.Collector, rawURL string) ([]byte, error) {
	collector := base.Clone()

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("visit: %w", err)
	}
	collector.Wait()
	if fetchErr != nil {
		return nil, fmt.Errorf("request: %w", fetchErr)
	}
	if body == nil {
		return nil, fmt.Errorf("empty response from %s", rawURL)
	}
	return body, nil
}
