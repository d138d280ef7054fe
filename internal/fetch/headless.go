package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
)

// ErrHeadlessDisabled indicates the headless fetcher was constructed with
// no tab budget.
var ErrHeadlessDisabled = errors.New("headless fetcher disabled")

// HeadlessConfig controls the chromedp-backed detail fetcher.
type HeadlessConfig struct {
	MaxTabs    int
	NavTimeout time.Duration
}

// HeadlessDetailClient renders detail pages with headless Chrome before
// parsing them. The detail source builds its roster table with scripts, so
// the plain HTTP body can arrive empty; rendering is the reliable path
// when that happens.
type HeadlessDetailClient struct {
	cfg             ClientConfig
	headless        HeadlessConfig
	throttle        *Throttle
	gate            CrawlGate
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	sem             chan struct{}
	logger          *zap.Logger
}

// NewHeadlessDetailClient starts a shared browser and returns a fetcher
// that opens one tab per detail fetch, capped at MaxTabs concurrent tabs.
func NewHeadlessDetailClient(
	cfg ClientConfig,
	headless HeadlessConfig,
	throttle *Throttle,
	gate CrawlGate,
	logger *zap.Logger,
) (*HeadlessDetailClient, error) {
	if headless.MaxTabs <= 0 {
		return nil, ErrHeadlessDisabled
	}
	if headless.NavTimeout <= 0 {
		headless.NavTimeout = 25 * time.Second
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &HeadlessDetailClient{
		cfg:             cfg,
		headless:        headless,
		throttle:        throttle,
		gate:            gate,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		sem:             make(chan struct{}, headless.MaxTabs),
		logger:          logger,
	}, nil
}

// Close tears down the browser and allocator.
func (c *HeadlessDetailClient) Close() {
	if c == nil {
		return
	}
	c.browserCancel()
	c.allocatorCancel()
}

// FetchDetail implements contest.DetailFetcher using a rendered page.
func (c *HeadlessDetailClient) FetchDetail(ctx context.Context, contestID string) (*contest.Detail, error) {
	detailURL := fmt.Sprintf(c.cfg.DetailURL, contestID)

	if !c.gate.Allowed(ctx, detailURL) {
		c.logger.Info("detail request vetoed by crawl policy",
			zap.String("contest_id", contestID), zap.String("url", detailURL))
		return nil, nil
	}
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	release, err := c.acquireTab(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	html, err := c.render(ctx, detailURL)
	if err != nil {
		return nil, fmt.Errorf("render detail %s: %w", contestID, err)
	}
	return parseDetailHTML(contestID, []byte(html))
}

func (c *HeadlessDetailClient) acquireTab(ctx context.Context) (func(), error) {
	select {
	case c.sem <- struct{}{}:
		return func() { <-c.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render tab: %w", ctx.Err())
	}
}

func (c *HeadlessDetailClient) render(ctx context.Context, rawURL string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, c.headless.NavTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(c.cfg.UserAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

// forwardCancel cancels the task when the caller's context finishes before
// the navigation does.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
