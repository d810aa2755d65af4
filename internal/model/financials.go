// Package model defines the data shapes shared between data sources,
// the valuation engine, persistence, and presentation.
package model

import "time"

// FinancialData is one company financial snapshot produced by a data
// source. Every numeric field is optional; a nil pointer means the
// source could not supply the figure. The record is immutable once a
// source returns it.
type FinancialData struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name,omitempty"`
	Source      string `json:"source,omitempty"`

	CurrentPrice      *float64 `json:"current_price,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`

	// Cash flow statement.
	FreeCashFlow       *float64 `json:"free_cash_flow,omitempty"`
	OperatingCashFlow  *float64 `json:"operating_cash_flow,omitempty"`
	CapitalExpenditure *float64 `json:"capital_expenditure,omitempty"` // negative magnitude (outflow)

	// Income statement.
	NetIncome *float64 `json:"net_income,omitempty"`
	Revenue   *float64 `json:"revenue,omitempty"`

	// Balance sheet.
	TotalDebt   *float64 `json:"total_debt,omitempty"`
	Cash        *float64 `json:"cash,omitempty"`
	ChangeInNWC *float64 `json:"change_in_nwc,omitempty"`

	// Risk metrics.
	Beta      *float64 `json:"beta,omitempty"`
	MarketCap *float64 `json:"market_cap,omitempty"`

	// Compound annual FCF growth over up to 5 years of history, in
	// percentage units, already clamped to [-10, 30] by the source.
	HistoricalGrowthRate *float64 `json:"historical_growth_rate,omitempty"`

	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// Ptr returns a pointer to v. Convenience for building optional fields.
func Ptr[T any](v T) *T {
	return &v
}

// Val dereferences p, returning fallback when p is nil.
func Val(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
