// Package source defines the interface data-source collaborators
// implement and a registry that hands the analysis pipeline an ordered
// set of enabled sources.
package source

import (
	"context"
	"sync"

	"github.com/sells-group/fairvalue-cli/internal/model"
)

// Source supplies one company financial snapshot per ticker. A source
// returns an error only for retrieval failures; fields it cannot
// populate are simply left nil in the record.
type Source interface {
	// Name returns the source identifier shown in comparison output.
	Name() string
	// Fetch retrieves the financial snapshot for a ticker.
	Fetch(ctx context.Context, ticker string) (*model.FinancialData, error)
}

// RateSource optionally supplies market-rate inputs alongside
// financial data. Sources that cannot observe rates don't implement it.
type RateSource interface {
	// RiskFreeRate returns the current risk-free rate as a decimal.
	RiskFreeRate(ctx context.Context) float64
	// MarketReturn returns the expected market return as a decimal.
	MarketReturn(ctx context.Context) float64
}

// EstimateSource supplies third-party fair-value estimates for
// comparison display rather than raw financial data.
type EstimateSource interface {
	// Name returns the source identifier.
	Name() string
	// Estimates retrieves external fair-value estimates for a ticker.
	Estimates(ctx context.Context, ticker string) ([]model.SourceEstimate, error)
}

// Registry holds the registered sources in registration order.
type Registry struct {
	mu        sync.RWMutex
	sources   []Source
	estimates []EstimateSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a financial-data source. Registration order is the
// order sources are consulted and displayed.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, s)
}

// RegisterEstimates adds an external-estimate source.
func (r *Registry) RegisterEstimates(s EstimateSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.estimates = append(r.estimates, s)
}

// Sources returns the registered financial-data sources in order.
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// EstimateSources returns the registered external-estimate sources.
func (r *Registry) EstimateSources() []EstimateSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EstimateSource, len(r.estimates))
	copy(out, r.estimates)
	return out
}
