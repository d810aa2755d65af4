package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTicker(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"AAPL", true},
		{"msft", true},
		{"A", true},
		{"GOOGL", true},
		{"", false},
		{"TOOLONG", false},
		{"BRK.B", false},
		{"12AB", false},
		{"AA PL", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidTicker(tt.in), "ticker %q", tt.in)
	}
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeTicker("  aapl "))
}

func TestValuationResultOK(t *testing.T) {
	r := &ValuationResult{FairValue: Ptr(42.0)}
	assert.True(t, r.OK())

	r = &ValuationResult{Err: &ValuationError{Kind: ErrInvalidFCFE, Message: "no usable FCFE"}}
	assert.False(t, r.OK())
	assert.Equal(t, "no usable FCFE", r.Err.Error())

	r = &ValuationResult{}
	assert.False(t, r.OK())
}

func TestRunAverageFairValue(t *testing.T) {
	r := &Run{Estimates: []SourceEstimate{
		{Source: "yahoo", FairValue: Ptr(100.0)},
		{Source: "edgar", FairValue: Ptr(140.0)},
		{Source: "scrape"},
	}}
	avg := r.AverageFairValue()
	require.NotNil(t, avg)
	assert.InDelta(t, 120.0, *avg, 1e-9)

	empty := &Run{Estimates: []SourceEstimate{{Source: "scrape"}}}
	assert.Nil(t, empty.AverageFairValue())
}

func TestFinancialDataJSONOmitsAbsentFields(t *testing.T) {
	data := FinancialData{Ticker: "AAPL", FreeCashFlow: Ptr(1e9)}
	raw, err := json.Marshal(data)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"free_cash_flow"`)
	assert.NotContains(t, string(raw), `"net_income"`)
	assert.NotContains(t, string(raw), `"beta"`)
}

func TestVal(t *testing.T) {
	assert.Equal(t, 1.0, Val(nil, 1.0))
	assert.Equal(t, 2.5, Val(Ptr(2.5), 1.0))
}
