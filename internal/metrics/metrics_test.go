package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Reset collectors for testing purposes.
	cyclesTotal = nil
	listingContestsTotal = nil
	detailFetchesTotal = nil
	classificationsTotal = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if cyclesTotal == nil || listingContestsTotal == nil ||
		detailFetchesTotal == nil || classificationsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	// A simple check to see if a metric can be used.
	listingContestsTotal.WithLabelValues("NFL").Add(12)
	if val := testutil.ToFloat64(listingContestsTotal); val != 12 {
		t.Errorf("Expected listingContestsTotal to be 12, got %f", val)
	}
}
