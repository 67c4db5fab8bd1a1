package commands

import (
	"fmt"
	"log/slog"

	"github.com/holos-run/gamescout/internal/catalog"
	"github.com/holos-run/gamescout/internal/config"
	"github.com/holos-run/gamescout/internal/games"
	"github.com/holos-run/gamescout/internal/igdb"
	"github.com/holos-run/gamescout/internal/logging"
)

// services holds the core components shared by the commands.
type services struct {
	config   *config.Config
	keywords *catalog.Cache
	games    *games.Service
}

// newServices loads configuration and wires the upstream client, keyword
// cache and games service.
func newServices(logger *slog.Logger) (*services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	httpClient := igdb.NewHTTPClient(igdb.TransportConfig{
		Timeout:  cfg.Upstream.Timeout,
		RetryMax: cfg.Upstream.RetryMax,
		Logger:   logger.With(slog.String("component", "transport")),
	})

	// Auth failures surface after a single attempt.
	tokenClient := igdb.NewHTTPClient(igdb.TransportConfig{
		Timeout: cfg.Upstream.Timeout,
	})

	tokens := igdb.NewTokenProvider(igdb.TokenConfig{
		ClientID:     cfg.Upstream.ClientID,
		ClientSecret: cfg.Upstream.ClientSecret,
		TokenURL:     cfg.Upstream.TokenURL,
		HTTPClient:   tokenClient,
	})

	client, err := igdb.NewClient(tokens, igdb.ClientConfig{
		BaseURL:    cfg.Upstream.BaseURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}

	keywords, err := catalog.New(client, igdb.ResourceKeywords,
		catalog.WithTTL(cfg.Keywords.TTL),
		catalog.WithPageSize(cfg.Keywords.PageSize),
		catalog.WithPageDelay(cfg.Keywords.PageDelay),
		catalog.WithWaitTimeout(cfg.Keywords.WaitTimeout),
		catalog.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword cache: %w", err)
	}

	gameSvc := games.NewService(client, games.Config{
		TTL:    cfg.Games.TTL,
		Limit:  cfg.Games.Limit,
		Logger: logging.With(logger, igdb.ResourceGames),
	})

	return &services{
		config:   cfg,
		keywords: keywords,
		games:    gameSvc,
	}, nil
}
