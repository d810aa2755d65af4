package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/fairvalue-cli/internal/model"
	"github.com/sells-group/fairvalue-cli/internal/report"
	"github.com/sells-group/fairvalue-cli/internal/valuation"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <ticker|company name>",
	Short: "Run a multi-source fair-value analysis",
	Long:  "Fetches financials from every enabled source, values each snapshot with the FCFE DCF model, and prints a side-by-side comparison. Non-ticker input is resolved via symbol search.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env := initEnv()

		ticker, err := resolveTicker(ctx, env, args[0])
		if err != nil {
			return err
		}

		if years, _ := cmd.Flags().GetInt("years"); cmd.Flags().Changed("years") {
			env.model.ProjectionYears = years
		}
		if tg, _ := cmd.Flags().GetFloat64("terminal-growth"); cmd.Flags().Changed("terminal-growth") {
			env.model.TerminalGrowthRate = tg / 100
		}

		rates := resolveRates(ctx, env)
		if growth, _ := cmd.Flags().GetFloat64("growth"); cmd.Flags().Changed("growth") {
			rates.GrowthOverride = model.Ptr(growth / 100)
		}

		run, err := runAnalysis(ctx, env, ticker, rates)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(run); err != nil {
				return eris.Wrap(err, "encode run")
			}
		} else {
			w := report.NewWriter(os.Stdout)
			w.Comparison(run)
			if details, _ := cmd.Flags().GetBool("details"); details {
				for _, e := range run.Estimates {
					if e.Result != nil {
						w.Valuation(run.Ticker+" ("+e.Source+")", e.Result)
					}
				}
			}
		}

		if save, _ := cmd.Flags().GetBool("save"); save {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.SaveRun(ctx, run); err != nil {
				return err
			}
			zap.L().Info("run saved", zap.String("run_id", run.ID))
		}

		return nil
	},
}

func init() {
	analyzeCmd.Flags().Float64("growth", 0, "growth rate override in percent (bypasses clamping)")
	analyzeCmd.Flags().Int("years", 0, "projection horizon in years (default from config)")
	analyzeCmd.Flags().Float64("terminal-growth", 0, "terminal growth rate in percent (default from config)")
	analyzeCmd.Flags().Bool("details", false, "print the full calculation breakdown per source")
	analyzeCmd.Flags().Bool("json", false, "emit the run as JSON instead of tables")
	analyzeCmd.Flags().Bool("save", false, "persist the run to the store")
	rootCmd.AddCommand(analyzeCmd)
}

// resolveTicker accepts a ticker symbol as-is and resolves anything
// else through symbol search.
func resolveTicker(ctx context.Context, env *analysisEnv, input string) (string, error) {
	if model.ValidTicker(input) {
		return model.NormalizeTicker(input), nil
	}
	ticker, err := env.yahoo.Search(ctx, input)
	if err != nil {
		return "", eris.Wrapf(err, "resolve %q to a ticker", input)
	}
	zap.L().Info("resolved company name to ticker",
		zap.String("input", input), zap.String("ticker", ticker))
	return model.NormalizeTicker(ticker), nil
}

// resolveRates observes current market rates when the market-data
// source is enabled, falling back to configured constants.
func resolveRates(ctx context.Context, env *analysisEnv) valuation.RateInputs {
	rates := valuation.RateInputs{
		RiskFreeRate: model.Ptr(cfg.Model.RiskFreeRate),
		MarketReturn: model.Ptr(cfg.Model.MarketReturn),
	}
	if cfg.Sources.Yahoo.Enabled {
		rates.RiskFreeRate = model.Ptr(env.yahoo.RiskFreeRate(ctx))
		rates.MarketReturn = model.Ptr(env.yahoo.MarketReturn(ctx))
	}
	return rates
}

// runAnalysis fetches every enabled source concurrently, values each
// snapshot, collects external estimates, and assembles the run. Source
// failures degrade to an empty estimate rather than failing the run.
func runAnalysis(ctx context.Context, env *analysisEnv, ticker string, rates valuation.RateInputs) (*model.Run, error) {
	sources := env.registry.Sources()
	if len(sources) == 0 {
		return nil, eris.New("no data sources enabled")
	}

	run := &model.Run{Ticker: ticker}
	estimates := make([]model.SourceEstimate, len(sources))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			estimate := model.SourceEstimate{
				Source:      src.Name(),
				Methodology: env.model.String(),
			}

			data, err := src.Fetch(gctx, ticker)
			if err != nil {
				zap.L().Warn("source fetch failed",
					zap.String("source", src.Name()),
					zap.String("ticker", ticker),
					zap.Error(err),
				)
				estimates[i] = estimate
				return nil
			}

			result := env.model.FairValue(*data, rates)
			estimate.FairValue = result.FairValue
			estimate.Result = result
			estimates[i] = estimate

			mu.Lock()
			if run.CompanyName == "" {
				run.CompanyName = data.CompanyName
			}
			if run.CurrentPrice == nil {
				run.CurrentPrice = data.CurrentPrice
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	run.Estimates = estimates

	for _, es := range env.registry.EstimateSources() {
		external, err := es.Estimates(ctx, ticker)
		if err != nil {
			zap.L().Warn("estimate source failed",
				zap.String("source", es.Name()), zap.Error(err))
			continue
		}
		run.Estimates = append(run.Estimates, external...)
	}

	return run, nil
}
