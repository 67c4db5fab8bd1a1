package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"
)

const (
	// DefaultTTL is how long a successfully refreshed snapshot stays fresh.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultPageSize is the number of records requested per upstream page.
	DefaultPageSize = 500
	// DefaultPageDelay paces page requests to stay under the upstream rate
	// limit.
	DefaultPageDelay = 100 * time.Millisecond
	// DefaultWaitTimeout bounds how long a caller waits for a refresh started
	// by someone else.
	DefaultWaitTimeout = 30 * time.Second
)

type config struct {
	ttl         time.Duration
	pageSize    int
	pageDelay   time.Duration
	waitTimeout time.Duration
	lang        language.Tag
	now         func() time.Time
	logger      *slog.Logger
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		ttl:         DefaultTTL,
		pageSize:    DefaultPageSize,
		pageDelay:   DefaultPageDelay,
		waitTimeout: DefaultWaitTimeout,
		lang:        language.Und,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithTTL sets how long a snapshot is served after a successful refresh
// before the next access triggers another refresh.
//
// Default is 7 days.
func WithTTL(ttl time.Duration) Option {
	return func(cfg *config) error {
		if ttl <= 0 {
			return errors.New("ttl must be positive")
		}
		cfg.ttl = ttl
		return nil
	}
}

// WithPageSize sets the number of records requested per page. A page with
// fewer records ends the drain.
//
// Default is 500.
func WithPageSize(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errors.New("page size must be positive")
		}
		cfg.pageSize = n
		return nil
	}
}

// WithPageDelay sets the pause between consecutive page requests. Zero
// disables pacing.
//
// Default is 100 milliseconds.
func WithPageDelay(d time.Duration) Option {
	return func(cfg *config) error {
		if d < 0 {
			return errors.New("page delay must not be negative")
		}
		cfg.pageDelay = d
		return nil
	}
}

// WithWaitTimeout sets how long a caller waits on an in-flight refresh
// before proceeding with whatever snapshot is present.
//
// Default is 30 seconds.
func WithWaitTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errors.New("wait timeout must be positive")
		}
		cfg.waitTimeout = d
		return nil
	}
}

// WithLanguage sets the collation language used to order items by name.
//
// Default is language.Und (root collation).
func WithLanguage(tag language.Tag) Option {
	return func(cfg *config) error {
		cfg.lang = tag
		return nil
	}
}

// WithClock sets the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) error {
		if now != nil {
			cfg.now = now
		}
		return nil
	}
}

// WithLogger sets the logger for refresh diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) error {
		if logger != nil {
			cfg.logger = logger
		}
		return nil
	}
}
