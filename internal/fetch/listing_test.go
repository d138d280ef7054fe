package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
)

func fastThrottle() *Throttle {
	return NewThrottle(0, 0)
}

func testClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		ListingURL: baseURL + "/lobby/getcontests",
		DetailURL:  baseURL + "/contest/detailspop?contestId=%s",
		UserAgent:  "contest-finder-test/0.1",
		Timeout:    5 * time.Second,
		Categories: []string{"NFL", "NHL"},
	}
}

func TestFetchListingParsesContests(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "NFL", r.URL.Query().Get("sport"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Contests": [
				{"id": 12345, "title": "NFL $5 Double Up", "entry_fee": 5,
				 "total_prizes": 45, "current_entries": 2, "maximum_entries": 10,
				 "game_type": "NFL"},
				{"id": "67890", "title": "NFL Sweater Weather", "entry_fee": 1,
				 "current_entries": 0, "maximum_entries": 3}
			]
		}`))
	}))
	defer server.Close()

	client := NewListingClient(testClientConfig(server.URL), fastThrottle(), allowAllGate{}, zap.NewNop())

	got, err := client.FetchListing(context.Background(), "NFL")
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "12345", got[0].ID)
	require.Equal(t, "NFL $5 Double Up", got[0].Title)
	require.Equal(t, 5.0, got[0].EntryFee)
	require.Equal(t, 10, got[0].MaximumEntries)
	require.Equal(t, contest.StatusUnprocessed, got[0].Status)

	// Missing game_type falls back to the requested category.
	require.Equal(t, "67890", got[1].ID)
	require.Equal(t, "NFL", got[1].GameType)
}

func TestFetchListingTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewListingClient(testClientConfig(server.URL), fastThrottle(), allowAllGate{}, zap.NewNop())

	got, err := client.FetchListing(context.Background(), "NFL")
	require.Error(t, err)
	require.Nil(t, got)
}

func TestFetchListingMalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	client := NewListingClient(testClientConfig(server.URL), fastThrottle(), allowAllGate{}, zap.NewNop())

	_, err := client.FetchListing(context.Background(), "NFL")
	require.Error(t, err)
}

func TestFetchAllListingsIsolatesCategoryFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sport") == "NHL" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"Contests": [{"id": "1", "title": "NFL Double Up", "maximum_entries": 5}]}`))
	}))
	defer server.Close()

	client := NewListingClient(testClientConfig(server.URL), fastThrottle(), allowAllGate{}, zap.NewNop())

	all := client.FetchAllListings(context.Background())

	require.Len(t, all, 2)
	require.Len(t, all["NFL"], 1)
	require.Empty(t, all["NHL"])
}

type denyAllGate struct{}

func (denyAllGate) Allowed(context.Context, string) bool { return false }

func TestFetchListingCrawlPolicyVetoIsASkip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("request should have been vetoed before reaching the server")
	}))
	defer server.Close()

	client := NewListingClient(testClientConfig(server.URL), fastThrottle(), denyAllGate{}, zap.NewNop())

	got, err := client.FetchListing(context.Background(), "NFL")
	require.NoError(t, err)
	require.Empty(t, got)
}
