// Package valuation implements the FCFE discounted cash flow engine:
// FCFE derivation, CAPM cost of equity, multi-year projection, Gordon
// Growth terminal value, and present-value aggregation. The package
// performs no I/O; data sources hand it a finished
// model.FinancialData and it hands back a model.ValuationResult.
package valuation

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/fairvalue-cli/internal/model"
)

// Calculator holds the stateless FCFE arithmetic. The zero value is
// usable; NewCalculator attaches a logger.
type Calculator struct {
	log *zap.Logger

	// PerShareDefault is returned by PerShare when the denominator is
	// zero. Kept at 0 unless a caller overrides it.
	PerShareDefault float64
}

// NewCalculator creates a Calculator. A nil logger is replaced with a
// nop logger so the calculator works without any global setup.
func NewCalculator(log *zap.Logger) *Calculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{log: log}
}

// FCFE derives free cash flow to equity from a financial snapshot.
// Strategies, in priority order:
//
//  1. reported free cash flow, when positive;
//  2. net income + capex - change in NWC (capex carries a negative
//     sign by convention), when positive;
//  3. operating cash flow + capex, when both components are present
//     and the sum is positive.
//
// The second return value is false when no strategy yields a positive
// figure; a non-positive FCFE is unusable for a growth perpetuity.
func (c *Calculator) FCFE(data model.FinancialData) (float64, bool) {
	if fcf := data.FreeCashFlow; fcf != nil && *fcf > 0 {
		c.log.Debug("using reported free cash flow as FCFE", zap.Float64("fcfe", *fcf))
		return *fcf, true
	}

	netIncome := model.Val(data.NetIncome, 0)
	capex := model.Val(data.CapitalExpenditure, 0)
	changeNWC := model.Val(data.ChangeInNWC, 0)

	if fcfe := netIncome + capex - changeNWC; fcfe > 0 {
		c.log.Debug("derived FCFE from income components", zap.Float64("fcfe", fcfe))
		return fcfe, true
	}

	if data.OperatingCashFlow != nil && data.CapitalExpenditure != nil {
		if fcfe := *data.OperatingCashFlow + *data.CapitalExpenditure; fcfe > 0 {
			c.log.Debug("derived FCFE from operating cash flow less capex", zap.Float64("fcfe", fcfe))
			return fcfe, true
		}
	}

	c.log.Debug("no usable FCFE", zap.String("ticker", data.Ticker))
	return 0, false
}

// CostOfEquity applies CAPM: riskFree + beta * (marketReturn - riskFree).
// Inputs pass through unclamped; degenerate results are intercepted by
// downstream guards, not here.
func (c *Calculator) CostOfEquity(riskFree, beta, marketReturn float64) float64 {
	return riskFree + beta*(marketReturn-riskFree)
}

// Project compounds currentFCFE forward for the given number of years.
// The first element is one compounding step beyond the base, so the
// base value itself never appears in the output.
func (c *Calculator) Project(currentFCFE, growthRate float64, years int) []float64 {
	projections := make([]float64, 0, years)
	fcfe := currentFCFE
	for year := 1; year <= years; year++ {
		fcfe *= 1 + growthRate
		projections = append(projections, fcfe)
	}
	return projections
}

// TerminalValue estimates the value of all cash flows beyond the
// projection horizon with the Gordon Growth Model:
// finalFCFE * (1+g) / (r-g). When r <= g the model diverges, so g is
// replaced with r/2 before dividing. The substitution is internal;
// callers keep reporting the configured terminal growth rate.
func (c *Calculator) TerminalValue(finalFCFE, terminalGrowth, costOfEquity float64) float64 {
	if costOfEquity <= terminalGrowth {
		c.log.Warn("cost of equity does not exceed terminal growth, adjusting terminal growth",
			zap.Float64("cost_of_equity", costOfEquity),
			zap.Float64("terminal_growth", terminalGrowth),
		)
		terminalGrowth = costOfEquity * 0.5
	}
	return finalFCFE * (1 + terminalGrowth) / (costOfEquity - terminalGrowth)
}

// PresentValue discounts the projected cash flows and the terminal
// value back to today. The terminal value is discounted at the final
// projection year, not one year beyond it.
func (c *Calculator) PresentValue(projected []float64, terminalValue, costOfEquity float64) float64 {
	var pv float64
	for i, fcfe := range projected {
		pv += fcfe / math.Pow(1+costOfEquity, float64(i+1))
	}
	horizon := float64(len(projected))
	pv += terminalValue / math.Pow(1+costOfEquity, horizon)
	return pv
}

// PerShare divides total equity value by shares outstanding. FCFE is
// already an equity-holder cash flow, so no cash or debt adjustment
// applies. A zero denominator returns PerShareDefault instead of
// failing; the orchestrator screens shares before dividing.
func (c *Calculator) PerShare(totalEquityValue, sharesOutstanding float64) float64 {
	if sharesOutstanding == 0 {
		return c.PerShareDefault
	}
	return totalEquityValue / sharesOutstanding
}
