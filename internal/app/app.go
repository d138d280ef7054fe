// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/api"
	"github.com/kkeeling/dk-contest-finder/internal/clock/system"
	"github.com/kkeeling/dk-contest-finder/internal/config"
	"github.com/kkeeling/dk-contest-finder/internal/contest"
	"github.com/kkeeling/dk-contest-finder/internal/fetch"
	"github.com/kkeeling/dk-contest-finder/internal/logging"
	"github.com/kkeeling/dk-contest-finder/internal/metrics"
	"github.com/kkeeling/dk-contest-finder/internal/notify"
	"github.com/kkeeling/dk-contest-finder/internal/runner"
	"github.com/kkeeling/dk-contest-finder/internal/store/memory"
	"github.com/kkeeling/dk-contest-finder/internal/store/postgres"
)

// App holds the shared, long-lived services for the finder. It is built
// once at startup and torn down with Close.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    contest.Store
	runner   *runner.Runner
	server   *api.Server
	headless *fetch.HeadlessDetailClient
}

// New builds the full service graph from config, failing fast when any
// critical dependency cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	clientCfg := fetch.ClientConfig{
		ListingURL: cfg.Fetch.ListingURL,
		DetailURL:  cfg.Fetch.DetailURL,
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		Categories: cfg.Fetch.Categories,
	}
	throttle := fetch.NewThrottle(
		time.Duration(cfg.Fetch.MinDelayMs)*time.Millisecond,
		time.Duration(cfg.Fetch.MaxDelayMs)*time.Millisecond,
	)
	gate := fetch.NewRobotsGate(cfg.Fetch.RespectRobots, cfg.Fetch.UserAgent, logger)

	listings := fetch.NewListingClient(clientCfg, throttle, gate, logger)

	var (
		detail   contest.DetailFetcher
		headless *fetch.HeadlessDetailClient
	)
	if cfg.Headless.Enabled {
		headless, err = fetch.NewHeadlessDetailClient(clientCfg, fetch.HeadlessConfig{
			MaxTabs:    cfg.Headless.MaxTabs,
			NavTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		}, throttle, gate, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		detail = headless
		logger.Info("using headless detail fetcher", zap.Int("max_tabs", cfg.Headless.MaxTabs))
	} else {
		detail = fetch.NewDetailClient(clientCfg, throttle, gate, logger)
	}
	pool := fetch.NewDetailPool(detail, cfg.Fetch.PoolWidth, logger)

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		if headless != nil {
			headless.Close()
		}
		store.Close()
		return nil, err
	}

	run := runner.New(runner.Params{
		Store:      store,
		Listings:   listings,
		Details:    pool,
		Notifier:   notifier,
		Clock:      system.New(),
		Logger:     logger,
		Criteria:   cfg.Criteria(),
		Blacklist:  contest.NewBlacklist(cfg.Blacklist),
		Thresholds: cfg.ContestThresholds(),
		Interval:   cfg.PollInterval(),
	})

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		runner:   run,
		server:   api.NewServer(store, logger),
		headless: headless,
	}, nil
}

func buildStore(ctx context.Context, cfg config.Config) (contest.Store, error) {
	switch cfg.DB.Driver {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        int32(cfg.DB.MaxConns),
			MinConns:        int32(cfg.DB.MinConns),
			MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return store, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown db driver: %s", cfg.DB.Driver)
	}
}

func buildNotifier(cfg config.Config, logger *zap.Logger) (contest.Notifier, error) {
	if !cfg.Slack.Enabled {
		logger.Info("slack disabled, alerts will only be logged")
		return logOnlyNotifier{logger: logger}, nil
	}
	notifier, err := notify.New(notify.Config{
		Token:       cfg.Slack.Token,
		Channel:     cfg.Slack.Channel,
		MaxAttempts: cfg.Slack.MaxAttempts,
		LinkBase:    cfg.Slack.LinkBase,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init slack notifier: %w", err)
	}
	return notifier, nil
}

// logOnlyNotifier records favorable contests in the log stream when no
// chat transport is configured.
type logOnlyNotifier struct {
	logger *zap.Logger
}

func (n logOnlyNotifier) Notify(_ context.Context, c contest.Contest, entrants []contest.Entrant) error {
	n.logger.Info("favorable contest found",
		zap.String("contest_id", c.ID),
		zap.String("title", c.Title),
		zap.Float64("entry_fee", c.EntryFee),
		zap.Int("known_entrants", len(entrants)))
	return nil
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store exposes the configured contest store.
func (a *App) Store() contest.Store {
	return a.store
}

// Runner returns the cycle runner.
func (a *App) Runner() *runner.Runner {
	return a.runner
}

// Server returns the HTTP API server.
func (a *App) Server() *api.Server {
	return a.server
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Close releases the store, browser, and log buffers.
func (a *App) Close() {
	if a.headless != nil {
		a.headless.Close()
	}
	a.store.Close()
	_ = a.logger.Sync()
}
