package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	// Upstream configures access to the identity and resource endpoints.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Keywords configures the keyword catalog cache.
	Keywords CatalogConfig `yaml:"keywords" envPrefix:"GAMESCOUT_KEYWORDS_"`

	// Games configures the game search result cache.
	Games GamesConfig `yaml:"games" envPrefix:"GAMESCOUT_GAMES_"`

	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" envPrefix:"GAMESCOUT_SERVER_"`
}

// UpstreamConfig holds the upstream endpoints and client credentials.
type UpstreamConfig struct {
	// ClientID and ClientSecret are exchanged for a bearer token.
	ClientID     string `yaml:"client_id" env:"IGDB_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"IGDB_CLIENT_SECRET"`

	// BaseURL is the resource API root (e.g., "https://api.igdb.com/v4").
	BaseURL string `yaml:"base_url" env:"IGDB_BASE_URL"`

	// TokenURL is the identity endpoint.
	TokenURL string `yaml:"token_url" env:"IGDB_TOKEN_URL"`

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `yaml:"timeout" env:"GAMESCOUT_UPSTREAM_TIMEOUT"`

	// RetryMax is the number of transport-level retries for connection
	// errors, 429 and 5xx responses.
	RetryMax int `yaml:"retry_max" env:"GAMESCOUT_UPSTREAM_RETRY_MAX"`
}

// CatalogConfig holds settings for a full-collection catalog cache.
type CatalogConfig struct {
	TTL         time.Duration `yaml:"ttl" env:"TTL"`
	PageSize    int           `yaml:"page_size" env:"PAGE_SIZE"`
	PageDelay   time.Duration `yaml:"page_delay" env:"PAGE_DELAY"`
	WaitTimeout time.Duration `yaml:"wait_timeout" env:"WAIT_TIMEOUT"`
	SearchLimit int           `yaml:"search_limit" env:"SEARCH_LIMIT"`
}

// GamesConfig holds settings for game searches.
type GamesConfig struct {
	TTL   time.Duration `yaml:"ttl" env:"TTL"`
	Limit int           `yaml:"limit" env:"LIMIT"`
}

// ServerConfig holds the HTTP listener address.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
	Port int    `yaml:"port" env:"PORT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:  "https://api.igdb.com/v4",
			TokenURL: "https://id.twitch.tv/oauth2/token",
			Timeout:  10 * time.Second,
			RetryMax: 2,
		},
		Keywords: CatalogConfig{
			TTL:         7 * 24 * time.Hour,
			PageSize:    500,
			PageDelay:   100 * time.Millisecond,
			WaitTimeout: 30 * time.Second,
			SearchLimit: 20,
		},
		Games: GamesConfig{
			TTL:   7 * 24 * time.Hour,
			Limit: 50,
		},
		Server: ServerConfig{
			Addr: "0.0.0.0",
			Port: 5000,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Upstream.Validate(); err != nil {
		return fmt.Errorf("upstream: %w", err)
	}
	if err := c.Keywords.Validate(); err != nil {
		return fmt.Errorf("keywords: %w", err)
	}
	if c.Games.TTL <= 0 {
		return errors.New("games: ttl must be positive")
	}
	if c.Games.Limit <= 0 || c.Games.Limit > 500 {
		return errors.New("games: limit must be between 1 and 500")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	return nil
}

// Validate checks that the upstream configuration is valid.
func (c *UpstreamConfig) Validate() error {
	if c.ClientID == "" {
		return errors.New("client_id is required")
	}
	if c.ClientSecret == "" {
		return errors.New("client_secret is required")
	}
	for name, raw := range map[string]string{"base_url": c.BaseURL, "token_url": c.TokenURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s must have http or https scheme: %q", name, raw)
		}
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.RetryMax < 0 {
		return errors.New("retry_max must not be negative")
	}
	return nil
}

// Validate checks that the catalog configuration is valid.
func (c *CatalogConfig) Validate() error {
	if c.TTL <= 0 {
		return errors.New("ttl must be positive")
	}
	// The upstream caps a single page at 500 records.
	if c.PageSize <= 0 || c.PageSize > 500 {
		return errors.New("page_size must be between 1 and 500")
	}
	if c.PageDelay < 0 {
		return errors.New("page_delay must not be negative")
	}
	if c.WaitTimeout <= 0 {
		return errors.New("wait_timeout must be positive")
	}
	if c.SearchLimit <= 0 {
		return errors.New("search_limit must be positive")
	}
	return nil
}
