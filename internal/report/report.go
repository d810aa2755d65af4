// Package report renders analysis results for the console: the
// source-comparison table, the calculation breakdown, and the
// sensitivity table. Absent figures render as N/A rather than zero.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/fairvalue-cli/internal/model"
)

const notAvailable = "N/A"

// Writer renders reports to an output stream.
type Writer struct {
	out io.Writer
	p   *message.Printer
}

// NewWriter creates a report writer. Numbers are grouped per English
// locale conventions.
func NewWriter(out io.Writer) *Writer {
	return &Writer{
		out: out,
		p:   message.NewPrinter(language.English),
	}
}

// Comparison renders the per-source fair-value table for a run,
// including upside against the current price and the average across
// populated estimates.
func (w *Writer) Comparison(run *model.Run) {
	fmt.Fprintf(w.out, "\n%s", run.Ticker)
	if run.CompanyName != "" {
		fmt.Fprintf(w.out, " - %s", run.CompanyName)
	}
	fmt.Fprintln(w.out)

	if run.CurrentPrice != nil {
		w.p.Fprintf(w.out, "Current price: $%.2f\n", *run.CurrentPrice)
	} else {
		fmt.Fprintf(w.out, "Current price: %s\n", notAvailable)
	}
	fmt.Fprintln(w.out)

	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tMETHODOLOGY\tFAIR VALUE\tUPSIDE")
	for _, e := range run.Estimates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.Source,
			e.Methodology,
			w.money(e.FairValue),
			w.upside(e.FairValue, run.CurrentPrice),
		)
	}
	if avg := run.AverageFairValue(); avg != nil {
		fmt.Fprintf(tw, "%s\t\t%s\t%s\n", "AVERAGE", w.money(avg), w.upside(avg, run.CurrentPrice))
	}
	tw.Flush() //nolint:errcheck
}

// Valuation renders one calculation: verdict line, intermediate
// figures, and the assumptions behind them.
func (w *Writer) Valuation(ticker string, r *model.ValuationResult) {
	fmt.Fprintln(w.out)
	if !r.OK() {
		fmt.Fprintf(w.out, "%s: valuation failed", ticker)
		if r.Err != nil {
			fmt.Fprintf(w.out, " (%s: %s)", r.Err.Kind, r.Err.Message)
		}
		fmt.Fprintln(w.out)
		w.details(&r.Details)
		return
	}

	w.p.Fprintf(w.out, "%s fair value: $%.2f per share\n", ticker, *r.FairValue)
	w.details(&r.Details)
	w.assumptions(&r.Assumptions)
}

func (w *Writer) details(d *model.ValuationDetails) {
	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Current FCFE\t%s\n", w.largeMoney(d.CurrentFCFE))
	if len(d.ProjectedFCFE) > 0 {
		parts := make([]string, len(d.ProjectedFCFE))
		for i, v := range d.ProjectedFCFE {
			parts[i] = w.p.Sprintf("%.0f", v)
		}
		fmt.Fprintf(tw, "Projected FCFE\t%s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(tw, "Terminal value\t%s\n", w.largeMoney(d.TerminalValue))
	fmt.Fprintf(tw, "Total present value\t%s\n", w.largeMoney(d.TotalPresentValue))
	fmt.Fprintf(tw, "Shares outstanding\t%s\n", w.count(d.SharesOutstanding))
	if d.UpsidePercent != nil {
		fmt.Fprintf(tw, "Upside\t%+.1f%%\n", *d.UpsidePercent)
	}
	tw.Flush() //nolint:errcheck
}

func (w *Writer) assumptions(a *model.Assumptions) {
	fmt.Fprintln(w.out, "\nAssumptions:")
	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Growth rate\t%s\n", w.percent(a.GrowthRatePct))
	fmt.Fprintf(tw, "Cost of equity\t%s\n", w.percent(a.CostOfEquityPct))
	if a.Beta != nil {
		fmt.Fprintf(tw, "Beta\t%.2f\n", *a.Beta)
	}
	fmt.Fprintf(tw, "Risk-free rate\t%s\n", w.percent(a.RiskFreeRatePct))
	fmt.Fprintf(tw, "Market return\t%s\n", w.percent(a.MarketReturnPct))
	fmt.Fprintf(tw, "Terminal growth\t%s\n", w.percent(a.TerminalGrowthRatePct))
	tw.Flush() //nolint:errcheck
}

// Sensitivity renders the growth-rate scenario table. Scenarios that
// failed to produce a fair value show N/A.
func (w *Writer) Sensitivity(ticker string, r *model.SensitivityResult) {
	fmt.Fprintf(w.out, "\n%s growth-rate sensitivity\n\n", ticker)

	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROWTH RATE\tFAIR VALUE")
	for _, s := range r.Scenarios {
		marker := ""
		if r.BaseCase != nil && s.GrowthRatePct == 5 {
			marker = "  (base case)"
		}
		fmt.Fprintf(tw, "%.1f%%\t%s%s\n", s.GrowthRatePct, w.money(s.FairValue), marker)
	}
	tw.Flush() //nolint:errcheck

	if r.BaseCase != nil && r.BaseCase.OK() {
		w.p.Fprintf(w.out, "\nBase case fair value: $%.2f\n", *r.BaseCase.FairValue)
	}
}

func (w *Writer) money(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return w.p.Sprintf("$%.2f", *v)
}

func (w *Writer) largeMoney(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return w.p.Sprintf("$%.0f", *v)
}

func (w *Writer) count(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return w.p.Sprintf("%.0f", *v)
}

func (w *Writer) percent(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func (w *Writer) upside(fairValue, price *float64) string {
	if fairValue == nil || price == nil || *price == 0 {
		return notAvailable
	}
	return fmt.Sprintf("%+.1f%%", (*fairValue-*price)/(*price)*100)
}
