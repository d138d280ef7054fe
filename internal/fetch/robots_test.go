package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRobotsGateEnforcesDisallow(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /contest/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gate := NewRobotsGate(true, "contest-finder-test/0.1", zap.NewNop())

	require.False(t, gate.Allowed(context.Background(), server.URL+"/contest/detailspop"))
	require.True(t, gate.Allowed(context.Background(), server.URL+"/lobby/getcontests"))
}

func TestRobotsGateCachesPerHost(t *testing.T) {
	t.Parallel()

	var robotsHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&robotsHits, 1)
			_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
		}
	}))
	defer server.Close()

	gate := NewRobotsGate(true, "contest-finder-test/0.1", zap.NewNop())

	for i := 0; i < 5; i++ {
		require.True(t, gate.Allowed(context.Background(), server.URL+"/lobby"))
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&robotsHits))
}

func TestRobotsGateDisabledAllowsEverything(t *testing.T) {
	t.Parallel()

	gate := NewRobotsGate(false, "contest-finder-test/0.1", zap.NewNop())
	require.True(t, gate.Allowed(context.Background(), "http://example.invalid/anything"))
}

func TestRobotsGateUnreachableHostAllows(t *testing.T) {
	t.Parallel()

	gate := NewRobotsGate(true, "contest-finder-test/0.1", zap.NewNop())
	// robots.txt cannot be fetched; the gate fails open.
	require.True(t, gate.Allowed(context.Background(), "http://127.0.0.1:1/lobby"))
}
