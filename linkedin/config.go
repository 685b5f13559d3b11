package linkedin

import (
	"time"

	"github.com/nicksriv/leadflow/query"
)

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	// BaseURL is the upstream site root.
	BaseURL string

	// NavigateTimeout bounds one page navigation. Default: 60s.
	NavigateTimeout time.Duration

	// SettleDelay is the fixed wait after load for client-side rendering
	// to finish. Default: 3s.
	SettleDelay time.Duration

	// LoginWait is the extra wait after submitting credentials before
	// verifying the outcome. Default: 5s.
	LoginWait time.Duration

	// SessionTTL is the lifetime of a captured session. Default: 30 days.
	SessionTTL time.Duration

	// ExpiryWarnDays drives the expiring-soon flag in session status.
	// Default: 3.
	ExpiryWarnDays int

	// SearchPageSize is the upstream results-per-page count used to derive
	// the has-more indicator. Default: 10.
	SearchPageSize int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = query.DefaultBaseURL
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 60 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 3 * time.Second
	}
	if c.LoginWait <= 0 {
		c.LoginWait = 5 * time.Second
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * 24 * time.Hour
	}
	if c.ExpiryWarnDays <= 0 {
		c.ExpiryWarnDays = 3
	}
	if c.SearchPageSize <= 0 {
		c.SearchPageSize = 10
	}
}
