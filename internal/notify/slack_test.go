package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
)

type scriptedPoster struct {
	errs  []error
	calls int
	texts []string
}

func (p *scriptedPoster) PostMessageContext(_ context.Context, _ string, options ...slack.MsgOption) (string, string, error) {
	p.calls++
	// Render the message options so tests can assert on the body.
	_, values, err := slack.UnsafeApplyMsgOptions("token", "channel", "https://slack.test/api/", options...)
	if err == nil {
		p.texts = append(p.texts, values.Get("text"))
	}
	if p.calls <= len(p.errs) {
		return "", "", p.errs[p.calls-1]
	}
	return "channel", "ts", nil
}

func newTestNotifier(t *testing.T, client poster, maxAttempts int) *SlackNotifier {
	t.Helper()
	n := newWithClient(client, Config{
		Channel:     "#contests",
		MaxAttempts: maxAttempts,
		LinkBase:    "https://www.draftkings.com/draft/contest/",
	}, zap.NewNop())
	n.pause = func(context.Context, time.Duration) {}
	return n
}

func sampleContest() contest.Contest {
	return contest.Contest{
		ID:             "987",
		Title:          "NBA $3 Double Up",
		EntryFee:       3,
		TotalPrizes:    27,
		CurrentEntries: 7,
		MaximumEntries: 10,
	}
}

func TestNotifySendsFormattedMessage(t *testing.T) {
	t.Parallel()

	client := &scriptedPoster{}
	n := newTestNotifier(t, client, 3)

	err := n.Notify(context.Background(), sampleContest(), []contest.Entrant{
		{Username: "alpha"}, {Username: "beta"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, client.calls)
	require.Len(t, client.texts, 1)

	body := client.texts[0]
	require.Contains(t, body, "NBA $3 Double Up")
	require.Contains(t, body, "Entry Fee: $3.00")
	require.Contains(t, body, "Known Entrants: 2")
	require.Contains(t, body, "https://www.draftkings.com/draft/contest/987")
}

func TestNotifyRetriesRateLimitThenSucceeds(t *testing.T) {
	t.Parallel()

	client := &scriptedPoster{errs: []error{
		&slack.RateLimitedError{RetryAfter: 2 * time.Second},
	}}
	n := newTestNotifier(t, client, 3)

	var waited []time.Duration
	n.pause = func(_ context.Context, d time.Duration) { waited = append(waited, d) }

	err := n.Notify(context.Background(), sampleContest(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, client.calls)
	require.Equal(t, []time.Duration{2 * time.Second}, waited)
}

func TestNotifyGivesUpAfterBoundedAttempts(t *testing.T) {
	t.Parallel()

	limited := &slack.RateLimitedError{RetryAfter: time.Second}
	client := &scriptedPoster{errs: []error{limited, limited, limited, limited}}
	n := newTestNotifier(t, client, 3)

	err := n.Notify(context.Background(), sampleContest(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "retries exhausted")
	require.Equal(t, 3, client.calls)
}

func TestNotifyFatalErrorDoesNotRetry(t *testing.T) {
	t.Parallel()

	client := &scriptedPoster{errs: []error{errors.New("channel_not_found")}}
	n := newTestNotifier(t, client, 3)

	err := n.Notify(context.Background(), sampleContest(), nil)
	require.Error(t, err)
	require.Equal(t, 1, client.calls)
}

func TestClassifyAttemptDefaultsBackoff(t *testing.T) {
	t.Parallel()

	result, backoff := classifyAttempt(&slack.RateLimitedError{})
	require.Equal(t, attemptRetryable, result)
	require.Equal(t, time.Second, backoff)
}

func TestNewRequiresTokenAndChannel(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Channel: "#contests"}, zap.NewNop())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "token"))

	_, err = New(Config{Token: "xoxb-test"}, zap.NewNop())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "channel"))
}
