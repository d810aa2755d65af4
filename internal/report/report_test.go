package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/fairvalue-cli/internal/model"
)

func TestComparison(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	run := &model.Run{
		Ticker:       "AAPL",
		CompanyName:  "Apple Inc.",
		CurrentPrice: model.Ptr(150.0),
		Estimates: []model.SourceEstimate{
			{Source: "Yahoo Finance API", Methodology: "FCFE DCF", FairValue: model.Ptr(180.0)},
			{Source: "Finbox", Methodology: "Multi-model fair value", FairValue: model.Ptr(170.0)},
			{Source: "SEC 10-K Filing", Methodology: "FCFE DCF"},
		},
		CreatedAt: time.Now(),
	}
	w.Comparison(run)

	out := buf.String()
	assert.Contains(t, out, "AAPL - Apple Inc.")
	assert.Contains(t, out, "Current price: $150.00")
	assert.Contains(t, out, "Yahoo Finance API")
	assert.Contains(t, out, "$180.00")
	assert.Contains(t, out, "+20.0%")
	// The source without a figure shows N/A, twice (value and upside).
	assert.Contains(t, out, "N/A")
	// Average of the two populated estimates.
	assert.Contains(t, out, "AVERAGE")
	assert.Contains(t, out, "$175.00")
}

func TestComparison_NoPrice(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Comparison(&model.Run{Ticker: "AAPL"})
	assert.Contains(t, buf.String(), "Current price: N/A")
}

func TestValuation(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	r := &model.ValuationResult{
		FairValue: model.Ptr(185.5),
		Details: model.ValuationDetails{
			CurrentFCFE:       model.Ptr(100000000000.0),
			ProjectedFCFE:     []float64{105000000000, 110250000000},
			TerminalValue:     model.Ptr(1500000000000.0),
			TotalPresentValue: model.Ptr(2800000000000.0),
			SharesOutstanding: model.Ptr(15000000000.0),
			UpsidePercent:     model.Ptr(23.7),
		},
		Assumptions: model.Assumptions{
			GrowthRatePct:         model.Ptr(5.0),
			CostOfEquityPct:       model.Ptr(11.1),
			Beta:                  model.Ptr(1.2),
			RiskFreeRatePct:       model.Ptr(4.5),
			MarketReturnPct:       model.Ptr(10.0),
			TerminalGrowthRatePct: model.Ptr(2.5),
		},
	}
	w.Valuation("AAPL", r)

	out := buf.String()
	assert.Contains(t, out, "AAPL fair value: $185.50 per share")
	assert.Contains(t, out, "$100,000,000,000")
	assert.Contains(t, out, "15,000,000,000")
	assert.Contains(t, out, "+23.7%")
	assert.Contains(t, out, "Growth rate")
	assert.Contains(t, out, "5.00%")
	assert.Contains(t, out, "Beta")
	assert.Contains(t, out, "1.20")
}

func TestValuation_Failed(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	r := &model.ValuationResult{
		Details: model.ValuationDetails{CurrentFCFE: model.Ptr(130.0)},
		Err: &model.ValuationError{
			Kind:    model.ErrInvalidShares,
			Message: "shares outstanding missing",
		},
	}
	w.Valuation("XYZ", r)

	out := buf.String()
	assert.Contains(t, out, "valuation failed")
	assert.Contains(t, out, "invalid_shares_outstanding")
	// Partial details still render.
	assert.Contains(t, out, "Current FCFE")
	assert.Contains(t, out, "$130")
	// No assumptions block on failure.
	assert.NotContains(t, out, "Assumptions:")
}

func TestSensitivity(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	r := &model.SensitivityResult{
		Scenarios: []model.Scenario{
			{GrowthRatePct: 3, FairValue: model.Ptr(160.0)},
			{GrowthRatePct: 5, FairValue: model.Ptr(185.5)},
			{GrowthRatePct: 15},
		},
		BaseCase: &model.ValuationResult{FairValue: model.Ptr(185.5)},
	}
	w.Sensitivity("AAPL", r)

	out := buf.String()
	assert.Contains(t, out, "growth-rate sensitivity")
	assert.Contains(t, out, "3.0%")
	assert.Contains(t, out, "$160.00")
	assert.Contains(t, out, "(base case)")
	assert.Contains(t, out, "Base case fair value: $185.50")

	// The failed 15% scenario renders as N/A.
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "15.0%") {
			assert.Contains(t, line, "N/A")
		}
	}
}
