package model

import "time"

// SourceEstimate is one fair-value estimate attributed to a data
// source, as shown in the comparison table.
type SourceEstimate struct {
	Source      string           `json:"source"`
	Methodology string           `json:"methodology"`
	FairValue   *float64         `json:"fair_value,omitempty"`
	Result      *ValuationResult `json:"result,omitempty"`
}

// Run is one persisted multi-source analysis of a ticker.
type Run struct {
	ID           string           `json:"id"`
	Ticker       string           `json:"ticker"`
	CompanyName  string           `json:"company_name,omitempty"`
	CurrentPrice *float64         `json:"current_price,omitempty"`
	Estimates    []SourceEstimate `json:"estimates"`
	CreatedAt    time.Time        `json:"created_at"`
}

// AverageFairValue returns the mean of the run's populated estimates,
// or nil when no estimate carries a fair value.
func (r *Run) AverageFairValue() *float64 {
	var sum float64
	var n int
	for _, e := range r.Estimates {
		if e.FairValue != nil {
			sum += *e.FairValue
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
