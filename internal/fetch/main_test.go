package fetch

import (
	"testing"

	"github.com/kkeeling/dk-contest-finder/internal/metrics"
)

func TestMain(m *testing.M) {
	// Collectors must exist before any throttled fetch runs.
	metrics.Init()
	m.Run()
}
