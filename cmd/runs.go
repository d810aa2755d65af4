package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fairvalue-cli/internal/model"
	"github.com/sells-group/fairvalue-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved analysis runs",
	Long:  "Commands for listing, viewing, and pruning persisted analysis runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ticker, _ := cmd.Flags().GetString("ticker")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Ticker: model.NormalizeTicker(ticker),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs prune --

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a retention window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		n, err := st.PruneRuns(ctx, time.Now().Add(-olderThan))
		if err != nil {
			return eris.Wrap(err, "runs prune")
		}

		fmt.Fprintf(os.Stdout, "Deleted %d run(s).\n", n)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("ticker", "", "filter by ticker symbol")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsPruneCmd.Flags().Duration("older-than", 90*24*time.Hour, "delete runs older than this (e.g. 720h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsPruneCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTICKER\tCOMPANY\tPRICE\tAVG FAIR VALUE\tSOURCES\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t-----\t--------------\t-------\t-------")

	for _, r := range runs {
		price := "N/A"
		if r.CurrentPrice != nil {
			price = fmt.Sprintf("$%.2f", *r.CurrentPrice)
		}
		avg := "N/A"
		if v := r.AverageFairValue(); v != nil {
			avg = fmt.Sprintf("$%.2f", *v)
		}

		company := r.CompanyName
		if len(company) > 30 {
			company = company[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			truncateID(r.ID),
			r.Ticker,
			company,
			price,
			avg,
			len(r.Estimates),
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
