package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kkeeling/dk-contest-finder/internal/config"
)

func memoryConfig() config.Config {
	cfg, _ := config.Load("")
	return cfg
}

func TestNewBuildsServiceGraphWithMemoryStore(t *testing.T) {
	a, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Logger())
	require.NotNil(t, a.Store())
	require.NotNil(t, a.Runner())
	require.NotNil(t, a.Server())
}

func TestNewRejectsUnknownStoreDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.DB.Driver = "sqlite"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown db driver")
}

func TestNewRequiresSlackTokenWhenEnabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.Slack.Enabled = true
	cfg.Slack.Channel = "#contests"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "slack")
}
