// Package config loads and validates finder configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Poll       PollConfig       `mapstructure:"poll"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Filter     FilterConfig     `mapstructure:"filter"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Blacklist  []string         `mapstructure:"blacklist"`
	DB         DBConfig         `mapstructure:"db"`
	Slack      SlackConfig      `mapstructure:"slack"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// PollConfig governs the discovery cycle cadence.
type PollConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// FetchConfig configures the lobby and contest page clients.
type FetchConfig struct {
	ListingURL     string   `mapstructure:"listing_url"`
	DetailURL      string   `mapstructure:"detail_url"`
	UserAgent      string   `mapstructure:"user_agent"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	Categories     []string `mapstructure:"categories"`
	MinDelayMs     int      `mapstructure:"min_delay_ms"`
	MaxDelayMs     int      `mapstructure:"max_delay_ms"`
	PoolWidth      int      `mapstructure:"pool_width"`
	RespectRobots  bool     `mapstructure:"respect_robots"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxTabs       int  `mapstructure:"max_tabs"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// FilterConfig holds the contest entry filters.
type FilterConfig struct {
	MaxEntrants  int      `mapstructure:"max_entrants"`
	MaxEntryFee  float64  `mapstructure:"max_entry_fee"`
	TitleKeyword string   `mapstructure:"title_keyword"`
	GameTypes    []string `mapstructure:"game_types"`
}

// ThresholdsConfig maps contest capacity to the maximum acceptable share of
// highest-tier entrants.
type ThresholdsConfig struct {
	Size3   float64 `mapstructure:"size_3"`
	Size4   float64 `mapstructure:"size_4"`
	Size5   float64 `mapstructure:"size_5"`
	Default float64 `mapstructure:"default"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeSec int    `mapstructure:"conn_lifetime_seconds"`
}

// SlackConfig holds alert delivery settings.
type SlackConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Token       string `mapstructure:"token"`
	Channel     string `mapstructure:"channel"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	LinkBase    string `mapstructure:"link_base"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("poll.interval_seconds", 300)
	v.SetDefault("fetch.listing_url", "https://www.draftkings.com/lobby/getcontests")
	v.SetDefault("fetch.detail_url", "https://www.draftkings.com/contest/detailspop?contestId=%s")
	v.SetDefault("fetch.user_agent", "dk-contest-finder/0.1")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.categories", []string{"NFL", "NHL", "NBA", "MLB", "TEN", "SOC", "MMA", "GOL"})
	v.SetDefault("fetch.min_delay_ms", 1000)
	v.SetDefault("fetch.max_delay_ms", 3000)
	v.SetDefault("fetch.pool_width", 5)
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_tabs", 2)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("filter.max_entrants", 10)
	v.SetDefault("filter.title_keyword", "Double Up")
	v.SetDefault("thresholds.size_3", 0.70)
	v.SetDefault("thresholds.size_4", 0.51)
	v.SetDefault("thresholds.size_5", 0.40)
	v.SetDefault("thresholds.default", 0.30)
	v.SetDefault("db.driver", "memory")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_seconds", 1800)
	v.SetDefault("slack.enabled", false)
	v.SetDefault("slack.max_attempts", 3)
	v.SetDefault("slack.link_base", "https://www.draftkings.com/draft/contest/")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be > 0")
	}
	if c.Fetch.PoolWidth <= 0 {
		return fmt.Errorf("fetch.pool_width must be > 0")
	}
	if c.Fetch.MinDelayMs < 0 || c.Fetch.MaxDelayMs < c.Fetch.MinDelayMs {
		return fmt.Errorf("fetch delay window is inverted")
	}
	if len(c.Fetch.Categories) == 0 {
		return fmt.Errorf("fetch.categories must not be empty")
	}
	if c.Headless.Enabled && c.Headless.MaxTabs <= 0 {
		return fmt.Errorf("headless.max_tabs must be > 0 when headless is enabled")
	}
	switch c.DB.Driver {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.driver is postgres")
		}
	default:
		return fmt.Errorf("db.driver must be memory or postgres, got %q", c.DB.Driver)
	}
	if c.Slack.Enabled {
		if c.Slack.Token == "" {
			return fmt.Errorf("slack.token must be set when slack is enabled")
		}
		if c.Slack.Channel == "" {
			return fmt.Errorf("slack.channel must be set when slack is enabled")
		}
	}
	return nil
}

// PollInterval returns the cycle cadence as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// Criteria converts the filter section into pipeline predicates.
func (c Config) Criteria() contest.Criteria {
	return contest.Criteria{
		MaxEntrants:  c.Filter.MaxEntrants,
		MaxEntryFee:  c.Filter.MaxEntryFee,
		TitleKeyword: c.Filter.TitleKeyword,
		GameTypes:    c.Filter.GameTypes,
	}
}

// ContestThresholds converts the thresholds section into the classifier's
// capacity-keyed table.
func (c Config) ContestThresholds() contest.Thresholds {
	return contest.Thresholds{
		BySize: map[int]float64{
			3: c.Thresholds.Size3,
			4: c.Thresholds.Size4,
			5: c.Thresholds.Size5,
		},
		Default: c.Thresholds.Default,
	}
}
