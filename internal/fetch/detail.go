package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
)

// Selectors for the detail page. The markup is collaborator-defined; these
// are kept in one place so a schema change is a one-line fix.
const (
	selContestTitle   = ".contest-name"
	selEntryFee       = ".contest-entry-fee"
	selTotalPrizes    = ".contest-total-prizes"
	selCurrentEntries = ".contest-entries .current"
	selMaximumEntries = ".contest-entries .maximum"
	selEntrantRows    = "table.entrants tbody tr"
	selEntrantName    = "td.username"
	selEntrantLevel   = "td.experience"
)

// DetailClient hydrates a contest from its detail page.
type DetailClient struct {
	cfg      ClientConfig
	throttle *Throttle
	gate     CrawlGate
	base     *colly.Collector
	logger   *zap.Logger
}

// NewDetailClient builds a DetailClient sharing the pipeline's throttle
// and crawl gate.
func NewDetailClient(cfg ClientConfig, throttle *Throttle, gate CrawlGate, logger *zap.Logger) *DetailClient {
	return &DetailClient{
		cfg:      cfg,
		throttle: throttle,
		gate:     gate,
		base:     newCollector(cfg),
		logger:   logger,
	}
}

// FetchDetail retrieves and parses one contest's detail page. Transport
// and parse failures are returned as errors; callers treat them as "no
// data this cycle" and leave previously persisted state alone.
func (c *DetailClient) FetchDetail(ctx context.Context, contestID string) (*contest.Detail, error) {
	detailURL := fmt.Sprintf(c.cfg.DetailURL, contestID)

	if !c.gate.Allowed(ctx, detailURL) {
		c.logger.Info("detail request vetoed by crawl policy",
			zap.String("contest_id", contestID), zap.String("url", detailURL))
		return nil, nil
	}
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := fetchBody(c.base, detailURL)
	if err != nil {
		return nil, fmt.Errorf("fetch detail %s: %w", contestID, err)
	}
	return parseDetailHTML(contestID, body)
}

// parseDetailHTML extracts the contest metadata and roster from a rendered
// detail page.
func parseDetailHTML(contestID string, body []byte) (*contest.Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse detail %s: %w", contestID, err)
	}
	return parseDetailDocument(contestID, doc)
}

func parseDetailDocument(contestID string, doc *goquery.Document) (*contest.Detail, error) {
	title := strings.TrimSpace(doc.Find(selContestTitle).First().Text())
	maxEntries := parseInt(doc.Find(selMaximumEntries).First().Text())
	if title == "" && maxEntries == 0 {
		// Neither a name nor a capacity: the page shape has changed or the
		// contest is gone. Degrade to "no data this cycle".
		return nil, fmt.Errorf("detail page for %s has no recognizable contest structure", contestID)
	}

	c := contest.Contest{
		ID:             contestID,
		Title:          title,
		EntryFee:       parseMoney(doc.Find(selEntryFee).First().Text()),
		TotalPrizes:    parseMoney(doc.Find(selTotalPrizes).First().Text()),
		CurrentEntries: parseInt(doc.Find(selCurrentEntries).First().Text()),
		MaximumEntries: maxEntries,
		Status:         contest.StatusUnprocessed,
	}

	var entrants []contest.Entrant
	doc.Find(selEntrantRows).Each(func(_ int, row *goquery.Selection) {
		username := strings.TrimSpace(row.Find(selEntrantName).Text())
		if username == "" {
			return
		}
		entrants = append(entrants, contest.Entrant{
			ContestID:       contestID,
			Username:        username,
			ExperienceLevel: contest.ParseExperienceLevel(row.Find(selEntrantLevel).Text()),
		})
	})

	return &contest.Detail{Contest: c, Entrants: entrants}, nil
}

// parseMoney reads a currency string like "$1,250.50". Unparseable input
// resolves to 0.
func parseMoney(s string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseInt(s string) int {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0
	}
	v, err := strconv.Atoi(cleaned)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
