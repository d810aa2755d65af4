package valuation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/fairvalue-cli/internal/model"
)

// Default rate assumptions applied when the caller supplies none.
const (
	DefaultRiskFreeRate       = 0.045
	DefaultMarketReturn       = 0.10
	DefaultTerminalGrowthRate = 0.025
	DefaultProjectionYears    = 5

	// Historical growth, expressed as a decimal, is clamped to this
	// range before use. Explicit overrides are never clamped.
	MinGrowthRate = -0.05
	MaxGrowthRate = 0.25

	// Assumed when the source supplies no historical growth rate,
	// in percentage units.
	defaultHistoricalGrowthPct = 5.0
)

// Model runs the full FCFE DCF valuation for one financial snapshot.
// Each call is independent and side-effect-free; a single Model may be
// shared across goroutines.
type Model struct {
	ProjectionYears    int
	TerminalGrowthRate float64

	calc *Calculator
	log  *zap.Logger
}

// Option customizes a Model.
type Option func(*Model)

// WithProjectionYears sets the explicit projection horizon.
func WithProjectionYears(years int) Option {
	return func(m *Model) { m.ProjectionYears = years }
}

// WithTerminalGrowthRate sets the perpetual growth rate used for the
// terminal value.
func WithTerminalGrowthRate(rate float64) Option {
	return func(m *Model) { m.TerminalGrowthRate = rate }
}

// NewModel creates a valuation model with the default 5-year horizon
// and 2.5% terminal growth. A nil logger is replaced with a nop logger.
func NewModel(log *zap.Logger, opts ...Option) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{
		ProjectionYears:    DefaultProjectionYears,
		TerminalGrowthRate: DefaultTerminalGrowthRate,
		calc:               NewCalculator(log),
		log:                log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateInputs carries the per-call rate parameters. Nil rate fields fall
// back to the package defaults; an explicit value, including zero, is
// used as-is. GrowthOverride, when set, is used verbatim without
// clamping.
type RateInputs struct {
	RiskFreeRate   *float64
	MarketReturn   *float64
	GrowthOverride *float64
}

// FairValue computes the fair value per share for one financial
// snapshot. The computation short-circuits at the first unusable input
// and returns a result whose Err field is set; details and assumptions
// populated before the failure are retained for diagnostics.
func (m *Model) FairValue(data model.FinancialData, rates RateInputs) *model.ValuationResult {
	riskFree := model.Val(rates.RiskFreeRate, DefaultRiskFreeRate)
	marketReturn := model.Val(rates.MarketReturn, DefaultMarketReturn)
	result := &model.ValuationResult{}

	// Step 1: current FCFE.
	currentFCFE, ok := m.calc.FCFE(data)
	if !ok {
		result.Err = &model.ValuationError{
			Kind:    model.ErrInvalidFCFE,
			Message: "could not derive a positive FCFE from the available data",
		}
		return result
	}
	result.Details.CurrentFCFE = model.Ptr(currentFCFE)

	// Step 2: growth rate. Explicit overrides pass through unclamped;
	// the historical rate arrives in percentage units and is clamped
	// to a range a perpetuity model can tolerate.
	var growthRate float64
	if rates.GrowthOverride != nil {
		growthRate = *rates.GrowthOverride
	} else {
		growthRate = model.Val(data.HistoricalGrowthRate, defaultHistoricalGrowthPct) / 100
		growthRate = min(max(growthRate, MinGrowthRate), MaxGrowthRate)
	}
	result.Assumptions.GrowthRatePct = model.Ptr(growthRate * 100)

	// Step 3: cost of equity via CAPM.
	beta := model.Val(data.Beta, 1.0)
	costOfEquity := m.calc.CostOfEquity(riskFree, beta, marketReturn)
	result.Assumptions.CostOfEquityPct = model.Ptr(costOfEquity * 100)
	result.Assumptions.Beta = model.Ptr(beta)
	result.Assumptions.RiskFreeRatePct = model.Ptr(riskFree * 100)
	result.Assumptions.MarketReturnPct = model.Ptr(marketReturn * 100)

	// Step 4: projection.
	projected := m.calc.Project(currentFCFE, growthRate, m.ProjectionYears)
	result.Details.ProjectedFCFE = projected

	// Step 5: terminal value. The assumption records the configured
	// rate even when the degeneracy guard substitutes a lower one
	// inside the division (source-compatible behavior).
	terminalValue := m.calc.TerminalValue(projected[len(projected)-1], m.TerminalGrowthRate, costOfEquity)
	result.Details.TerminalValue = model.Ptr(terminalValue)
	result.Assumptions.TerminalGrowthRatePct = model.Ptr(m.TerminalGrowthRate * 100)

	// Step 6: present value.
	totalPV := m.calc.PresentValue(projected, terminalValue, costOfEquity)
	result.Details.TotalPresentValue = model.Ptr(totalPV)

	// Step 7: shares outstanding.
	shares := model.Val(data.SharesOutstanding, 0)
	if shares <= 0 {
		result.Err = &model.ValuationError{
			Kind:    model.ErrInvalidShares,
			Message: "missing or non-positive shares outstanding",
		}
		return result
	}
	result.Details.SharesOutstanding = model.Ptr(shares)

	// Step 8: per-share fair value.
	fairValue := m.calc.PerShare(totalPV, shares)
	result.FairValue = model.Ptr(fairValue)

	// Step 9: upside versus the market, when a price is known. A zero
	// price is treated as absent.
	if price := model.Val(data.CurrentPrice, 0); price != 0 {
		result.Details.CurrentPrice = model.Ptr(price)
		result.Details.UpsidePercent = model.Ptr((fairValue - price) / price * 100)
	}

	m.log.Info("fair value computed",
		zap.String("ticker", data.Ticker),
		zap.String("source", data.Source),
		zap.Float64("fair_value", fairValue),
		zap.Float64("growth_rate", growthRate),
		zap.Float64("cost_of_equity", costOfEquity),
	)

	return result
}

// String describes the model configuration.
func (m *Model) String() string {
	return fmt.Sprintf("FCFE DCF (%d-year horizon, %.2f%% terminal growth)",
		m.ProjectionYears, m.TerminalGrowthRate*100)
}
