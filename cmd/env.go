package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/fairvalue-cli/internal/fetcher"
	"github.com/sells-group/fairvalue-cli/internal/source"
	"github.com/sells-group/fairvalue-cli/internal/source/edgar"
	"github.com/sells-group/fairvalue-cli/internal/source/scrape"
	"github.com/sells-group/fairvalue-cli/internal/source/yahoo"
	"github.com/sells-group/fairvalue-cli/internal/store"
	"github.com/sells-group/fairvalue-cli/internal/valuation"
)

// analysisEnv bundles the collaborators an analysis command needs.
type analysisEnv struct {
	yahoo    *yahoo.Client
	registry *source.Registry
	model    *valuation.Model
}

// initEnv wires the data sources and valuation model from config.
func initEnv() *analysisEnv {
	log := zap.L()

	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Sources.UserAgent,
		Timeout:    time.Duration(cfg.Sources.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Sources.MaxRetries,
	})

	registry := source.NewRegistry()

	yahooClient := yahoo.NewClient(httpFetcher, log.Named("yahoo"),
		yahoo.WithBaseURLs(cfg.Sources.Yahoo.QuoteURL, cfg.Sources.Yahoo.ChartURL))
	if cfg.Sources.Yahoo.Enabled {
		registry.Register(yahooClient)
	}

	if cfg.Sources.EDGAR.Enabled {
		// SEC asks automated clients to identify themselves.
		edgarFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Sources.EDGAR.UserAgent,
			Timeout:    time.Duration(cfg.Sources.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Sources.MaxRetries,
		})
		registry.Register(edgar.NewClient(edgarFetcher, cfg.Sources.EDGAR.DownloadDir, log.Named("edgar"),
			edgar.WithBaseURLs(cfg.Sources.EDGAR.BaseURL, cfg.Sources.EDGAR.DataURL)))
	}

	if cfg.Sources.ScrapeEnabled {
		opts := []scrape.Option{}
		if cfg.Sources.ScrapeDelaySec > 0 {
			opts = append(opts, scrape.WithDelay(rate.Limit(1/cfg.Sources.ScrapeDelaySec)))
		}
		registry.RegisterEstimates(scrape.NewScraper(httpFetcher, log.Named("scrape"), opts...))
	}

	vm := valuation.NewModel(log.Named("valuation"),
		valuation.WithProjectionYears(cfg.Model.ProjectionYears),
		valuation.WithTerminalGrowthRate(cfg.Model.TerminalGrowthRate),
	)

	return &analysisEnv{
		yahoo:    yahooClient,
		registry: registry,
		model:    vm,
	}
}

// initStore opens and migrates the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
