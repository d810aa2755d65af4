package model

// ErrorKind classifies the domain failures a valuation can end in.
// These are expected, recoverable conditions carried inside the result;
// they are not Go errors.
type ErrorKind string

const (
	// ErrInvalidFCFE means no usable free-cash-flow figure could be
	// derived from any fallback strategy.
	ErrInvalidFCFE ErrorKind = "invalid_fcfe"
	// ErrInvalidShares means shares outstanding was missing or
	// non-positive, so a per-share division is meaningless.
	ErrInvalidShares ErrorKind = "invalid_shares_outstanding"
)

// ValuationError is the error shape embedded in a ValuationResult.
type ValuationError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ValuationError) Error() string {
	return e.Message
}

// ValuationDetails holds the intermediate figures of one fair-value
// calculation. Fields are populated step by step; on an early failure
// only the steps completed so far are present.
type ValuationDetails struct {
	CurrentFCFE       *float64  `json:"current_fcfe,omitempty"`
	ProjectedFCFE     []float64 `json:"projected_fcfe,omitempty"`
	TerminalValue     *float64  `json:"terminal_value,omitempty"`
	TotalPresentValue *float64  `json:"total_present_value,omitempty"`
	SharesOutstanding *float64  `json:"shares_outstanding,omitempty"`
	CurrentPrice      *float64  `json:"current_price,omitempty"`
	UpsidePercent     *float64  `json:"upside_percent,omitempty"`
}

// Assumptions records the rates the calculation actually resolved,
// in percentage units except Beta.
type Assumptions struct {
	GrowthRatePct         *float64 `json:"growth_rate,omitempty"`
	CostOfEquityPct       *float64 `json:"cost_of_equity,omitempty"`
	Beta                  *float64 `json:"beta,omitempty"`
	RiskFreeRatePct       *float64 `json:"risk_free_rate,omitempty"`
	MarketReturnPct       *float64 `json:"market_return,omitempty"`
	TerminalGrowthRatePct *float64 `json:"terminal_growth_rate,omitempty"`
}

// ValuationResult is the output of one fair-value calculation. Exactly
// one of FairValue and Err is meaningfully populated after a completed
// call. The result is never mutated after it is returned.
type ValuationResult struct {
	FairValue   *float64         `json:"fair_value,omitempty"`
	Details     ValuationDetails `json:"details"`
	Assumptions Assumptions      `json:"assumptions"`
	Err         *ValuationError  `json:"error,omitempty"`
}

// OK reports whether the calculation produced a fair value.
func (r *ValuationResult) OK() bool {
	return r.Err == nil && r.FairValue != nil
}

// Scenario is one growth-rate scenario from a sensitivity run.
type Scenario struct {
	GrowthRatePct float64  `json:"growth_rate"`
	FairValue     *float64 `json:"fair_value,omitempty"`
}

// SensitivityResult is the scenario table produced by the sensitivity
// runner. BaseCase is the full result of the scenario whose growth rate
// is exactly 5%, when such a scenario was requested.
type SensitivityResult struct {
	Scenarios []Scenario       `json:"growth_sensitivity"`
	BaseCase  *ValuationResult `json:"base_case,omitempty"`
}
