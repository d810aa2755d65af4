package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fairvalue-cli/internal/model"
	"github.com/sells-group/fairvalue-cli/internal/valuation"
)

func TestResolveTicker_ValidSymbol(t *testing.T) {
	// Valid symbols skip the search round trip entirely.
	ticker, err := resolveTicker(context.Background(), newTestEnv(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ticker)
}

func TestRunAnalysis_MultiSource(t *testing.T) {
	setTestConfig(t)

	failing := &stubSource{name: "SEC 10-K Filing", err: assert.AnError}
	env := newTestEnv(healthySource(), failing)

	run, err := runAnalysis(context.Background(), env, "AAPL", valuation.RateInputs{})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", run.Ticker)
	assert.Equal(t, "Apple Inc.", run.CompanyName)
	require.NotNil(t, run.CurrentPrice)

	// One estimate per source, in registration order; the failed source
	// keeps its slot with no figure.
	require.Len(t, run.Estimates, 2)
	assert.Equal(t, "Yahoo Finance API", run.Estimates[0].Source)
	require.NotNil(t, run.Estimates[0].FairValue)
	require.NotNil(t, run.Estimates[0].Result)
	assert.True(t, run.Estimates[0].Result.OK())

	assert.Equal(t, "SEC 10-K Filing", run.Estimates[1].Source)
	assert.Nil(t, run.Estimates[1].FairValue)
	assert.Nil(t, run.Estimates[1].Result)
}

func TestRunAnalysis_SourceWithBadData(t *testing.T) {
	setTestConfig(t)

	// A snapshot with no cash-flow figures values to an error result,
	// which still occupies the estimate slot.
	sparse := &stubSource{
		name: "SEC 10-K Filing",
		data: &model.FinancialData{Ticker: "AAPL", Source: "SEC 10-K Filing"},
	}
	env := newTestEnv(sparse)

	run, err := runAnalysis(context.Background(), env, "AAPL", valuation.RateInputs{})
	require.NoError(t, err)

	require.Len(t, run.Estimates, 1)
	assert.Nil(t, run.Estimates[0].FairValue)
	require.NotNil(t, run.Estimates[0].Result)
	require.NotNil(t, run.Estimates[0].Result.Err)
	assert.Equal(t, model.ErrInvalidFCFE, run.Estimates[0].Result.Err.Kind)
}

func TestRunAnalysis_NoSources(t *testing.T) {
	setTestConfig(t)

	_, err := runAnalysis(context.Background(), newTestEnv(), "AAPL", valuation.RateInputs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data sources")
}

func TestCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "sensitivity", "runs", "serve"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestAnalyzeFlags(t *testing.T) {
	for _, flag := range []string{"growth", "years", "terminal-growth", "details", "json", "save"} {
		assert.NotNil(t, analyzeCmd.Flags().Lookup(flag), "flag %s missing", flag)
	}
}
