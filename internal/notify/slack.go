// Package notify delivers contest alerts to Slack.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
)

const defaultMaxAttempts = 3

// poster is the slice of the Slack client the notifier uses.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// attemptResult is the typed outcome of one delivery attempt. Retry
// control flow is explicit rather than driven by error branching.
type attemptResult int

const (
	attemptOK attemptResult = iota
	attemptRetryable
	attemptFatal
)

// Config controls the Slack notifier.
type Config struct {
	Token       string
	Channel     string
	MaxAttempts int
	// LinkBase prefixes the contest id to build the draft link in the
	// alert body.
	LinkBase string
}

// SlackNotifier posts one alert per favorable contest transition. Rate
// limiting from the chat transport is retried a bounded number of times,
// honoring the server-suggested backoff.
type SlackNotifier struct {
	client      poster
	channel     string
	maxAttempts int
	linkBase    string
	logger      *zap.Logger

	pause func(ctx context.Context, d time.Duration)
}

// New builds a SlackNotifier from config.
func New(cfg Config, logger *zap.Logger) (*SlackNotifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("slack token is required")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("slack channel is required")
	}
	return newWithClient(slack.New(cfg.Token), cfg, logger), nil
}

func newWithClient(client poster, cfg Config, logger *zap.Logger) *SlackNotifier {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &SlackNotifier{
		client:      client,
		channel:     cfg.Channel,
		maxAttempts: maxAttempts,
		linkBase:    cfg.LinkBase,
		logger:      logger,
		pause:       sleepContext,
	}
}

// Notify posts the alert for a contest that just became favorable.
// Exhausting every attempt surfaces an error for this notification only.
func (n *SlackNotifier) Notify(ctx context.Context, c contest.Contest, entrants []contest.Entrant) error {
	message := n.formatMessage(c, entrants)

	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(message, false))
		result, backoff := classifyAttempt(err)
		switch result {
		case attemptOK:
			n.logger.Info("contest alert sent",
				zap.String("contest_id", c.ID), zap.String("channel", n.channel))
			return nil
		case attemptRetryable:
			lastErr = err
			n.logger.Warn("slack rate limited; backing off",
				zap.String("contest_id", c.ID),
				zap.Int("attempt", attempt),
				zap.Duration("retry_after", backoff))
			n.pause(ctx, backoff)
			if ctx.Err() != nil {
				return fmt.Errorf("notify contest %s: %w", c.ID, ctx.Err())
			}
		case attemptFatal:
			return fmt.Errorf("notify contest %s: %w", c.ID, err)
		}
	}
	return fmt.Errorf("notify contest %s: retries exhausted: %w", c.ID, lastErr)
}

// classifyAttempt converts a post error into a typed outcome plus the
// backoff to honor before retrying.
func classifyAttempt(err error) (attemptResult, time.Duration) {
	if err == nil {
		return attemptOK, 0
	}
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		backoff := rateLimited.RetryAfter
		if backoff <= 0 {
			backoff = time.Second
		}
		return attemptRetryable, backoff
	}
	return attemptFatal, 0
}

func (n *SlackNotifier) formatMessage(c contest.Contest, entrants []contest.Entrant) string {
	var b strings.Builder
	b.WriteString("New eligible contest found!\n")
	fmt.Fprintf(&b, "Title: %s\n", c.Title)
	fmt.Fprintf(&b, "Entry Fee: $%.2f\n", c.EntryFee)
	fmt.Fprintf(&b, "Total Prizes: $%.2f\n", c.TotalPrizes)
	fmt.Fprintf(&b, "Current Entries: %d\n", c.CurrentEntries)
	fmt.Fprintf(&b, "Maximum Entries: %d\n", c.MaximumEntries)
	fmt.Fprintf(&b, "Known Entrants: %d\n", len(entrants))
	if n.linkBase != "" {
		fmt.Fprintf(&b, "Link: %s%s\n", n.linkBase, c.ID)
	}
	return b.String()
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
