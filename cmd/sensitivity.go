package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fairvalue-cli/internal/report"
	"github.com/sells-group/fairvalue-cli/internal/valuation"
)

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity <ticker|company name>",
	Short: "Test fair value across growth-rate scenarios",
	Long:  "Fetches financials from the market-data source and re-runs the valuation once per growth rate. Scenarios come from --rates, a --scenarios YAML file, or the built-in 3/5/7/10/15% set.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env := initEnv()

		ticker, err := resolveTicker(ctx, env, args[0])
		if err != nil {
			return err
		}

		var growthRates []float64
		if path, _ := cmd.Flags().GetString("scenarios"); path != "" {
			growthRates, err = valuation.LoadScenarios(path)
			if err != nil {
				return err
			}
		} else if pcts, _ := cmd.Flags().GetFloat64Slice("rates"); len(pcts) > 0 {
			growthRates = make([]float64, len(pcts))
			for i, pct := range pcts {
				growthRates[i] = pct / 100
			}
		}

		data, err := env.yahoo.Fetch(ctx, ticker)
		if err != nil {
			return eris.Wrapf(err, "fetch financials for %s", ticker)
		}

		result := env.model.Sensitivity(*data, resolveRates(ctx, env), growthRates)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(result), "encode sensitivity result")
		}

		w := report.NewWriter(os.Stdout)
		w.Sensitivity(ticker, result)
		if result.BaseCase != nil {
			w.Valuation(ticker+" (base case)", result.BaseCase)
		}
		return nil
	},
}

func init() {
	sensitivityCmd.Flags().Float64Slice("rates", nil, "growth rates to test, in percent (e.g. 3,5,10)")
	sensitivityCmd.Flags().String("scenarios", "", "YAML file listing growth_rates in percent")
	sensitivityCmd.Flags().Bool("json", false, "emit the result as JSON instead of tables")
	rootCmd.AddCommand(sensitivityCmd)
}
