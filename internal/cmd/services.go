package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/shopgenie/shopgenie/internal/config"
	"github.com/shopgenie/shopgenie/internal/core/engine"
	"github.com/shopgenie/shopgenie/internal/core/extractor"
	"github.com/shopgenie/shopgenie/internal/output"
)

// services is the search stack shared by serve and search.
type services struct {
	Limiter   *engine.RateLimiter
	Extractor *extractor.Extractor
	Pipeline  *engine.Pipeline
	Renderer  *output.HTMLFormatter
}

func buildServices(cfg *config.Config, logger *logging.Logger) (*services, error) {
	ranking, err := engine.ParseRanking(cfg.Results.Ranking)
	if err != nil {
		return nil, err
	}

	fetcher, err := newFetcher(cfg.Marketplace, logger)
	if err != nil {
		return nil, err
	}

	ext := &extractor.Extractor{
		Fetcher:    fetcher,
		BaseURL:    cfg.Marketplace.BaseURL,
		SearchURL:  cfg.Marketplace.SearchURL,
		QueryParam: cfg.Marketplace.QueryParam,
		SortParam:  cfg.Marketplace.SortParam,
		SortValue:  cfg.Marketplace.SortValue,
		ScanLimit:  cfg.Results.ScanLimit,
		MaxResults: cfg.Results.MaxResults,
		Source:     cfg.Marketplace.Name,
		Logger:     logger,
	}
	if cfg.Fallback.Enabled {
		catalog, err := extractor.LoadCatalog(cfg.Fallback.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load fallback catalog: %w", err)
		}
		ext.Fallback = catalog
	}

	limiter := engine.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	renderer := &output.HTMLFormatter{}

	return &services{
		Limiter:   limiter,
		Extractor: ext,
		Renderer:  renderer,
		Pipeline: &engine.Pipeline{
			Limiter:          limiter,
			Searcher:         ext,
			Renderer:         renderer,
			Split:            output.Split,
			Ranking:          ranking,
			MaxResults:       cfg.Results.MaxResults,
			MaxMessageLength: cfg.Message.MaxLength,
			Logger:           logger,
		},
	}, nil
}

func newFetcher(cfg config.MarketplaceConfig, logger *logging.Logger) (extractor.Fetcher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Fetcher)) {
	case "", "http":
		return &extractor.HTTPFetcher{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
			RetryDelay:  cfg.RetryDelay,
			Pacer:       extractor.NewPacer(cfg.RequestsPerSecond, cfg.Burst),
			Logger:      logger,
		}, nil
	case "colly":
		return &extractor.CollyFetcher{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
			Logger:    logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown marketplace fetcher %q", cfg.Fetcher)
	}
}

// limiterHealth reports the limiter as healthy while it is wired.
func (s *services) limiterHealth(ctx context.Context) error {
	if s.Limiter == nil {
		return fmt.Errorf("rate limiter not configured")
	}
	return nil
}
