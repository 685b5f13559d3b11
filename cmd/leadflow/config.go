package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nicksriv/leadflow/browse"
	"github.com/nicksriv/leadflow/linkedin"
)

// appConfig is the YAML service configuration. Durations are expressed
// as *_ms integer fields.
type appConfig struct {
	Listen         string   `yaml:"listen"`
	DBPath         string   `yaml:"db_path"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	Browser struct {
		RemoteURL         string   `yaml:"remote_url"`
		Headless          *bool    `yaml:"headless"`
		RecycleIntervalMs int64    `yaml:"recycle_interval_ms"`
		ResourceBlocking  []string `yaml:"resource_blocking"`
	} `yaml:"browser"`

	Engine struct {
		BaseURL           string `yaml:"base_url"`
		NavigateTimeoutMs int64  `yaml:"navigate_timeout_ms"`
		SettleDelayMs     int64  `yaml:"settle_delay_ms"`
		LoginWaitMs       int64  `yaml:"login_wait_ms"`
		SessionTTLDays    int    `yaml:"session_ttl_days"`
		ExpiryWarnDays    int    `yaml:"expiry_warn_days"`
		SearchPageSize    int    `yaml:"search_page_size"`
	} `yaml:"engine"`

	Retention struct {
		Schedule   string `yaml:"schedule"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"retention"`
}

func (c *appConfig) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8086"
	}
	if c.DBPath == "" {
		c.DBPath = "db/leadflow.db"
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = "0 4 * * *" // daily, 04:00
	}
	if c.Retention.MaxAgeDays <= 0 {
		c.Retention.MaxAgeDays = 180
	}
}

// loadConfig reads the YAML config at path. A missing file yields pure
// defaults; a malformed one is an error.
func loadConfig(path string) (*appConfig, error) {
	var cfg appConfig
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *appConfig) browserConfig() browse.Config {
	return browse.Config{
		RemoteURL:        c.Browser.RemoteURL,
		Headless:         c.Browser.Headless,
		RecycleInterval:  time.Duration(c.Browser.RecycleIntervalMs) * time.Millisecond,
		ResourceBlocking: c.Browser.ResourceBlocking,
	}
}

func (c *appConfig) engineConfig() linkedin.Config {
	return linkedin.Config{
		BaseURL:         c.Engine.BaseURL,
		NavigateTimeout: time.Duration(c.Engine.NavigateTimeoutMs) * time.Millisecond,
		SettleDelay:     time.Duration(c.Engine.SettleDelayMs) * time.Millisecond,
		LoginWait:       time.Duration(c.Engine.LoginWaitMs) * time.Millisecond,
		SessionTTL:      time.Duration(c.Engine.SessionTTLDays) * 24 * time.Hour,
		ExpiryWarnDays:  c.Engine.ExpiryWarnDays,
		SearchPageSize:  c.Engine.SearchPageSize,
	}
}
