package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fairvalue-cli/internal/fetcher"
)

const quoteSummaryFixture = `{
  "quoteSummary": {
    "result": [{
      "price": {
        "regularMarketPrice": {"raw": 150.25, "fmt": "150.25"},
        "longName": "Apple Inc."
      },
      "defaultKeyStatistics": {
        "sharesOutstanding": {"raw": 16000000000, "fmt": "16B"},
        "beta": {"raw": 1.2, "fmt": "1.20"}
      },
      "summaryDetail": {
        "marketCap": {"raw": 2400000000000, "fmt": "2.4T"}
      },
      "financialData": {
        "currentPrice": {"raw": 150.5, "fmt": "150.50"}
      }
    }],
    "error": null
  }
}`

const timeseriesFixture = `{
  "timeseries": {
    "result": [
      {
        "meta": {"type": ["annualFreeCashFlow"]},
        "annualFreeCashFlow": [
          {"asOfDate": "2020-09-30", "reportedValue": {"raw": 73365000000}},
          {"asOfDate": "2021-09-30", "reportedValue": {"raw": 92953000000}},
          {"asOfDate": "2022-09-30", "reportedValue": {"raw": 111443000000}},
          {"asOfDate": "2023-09-30", "reportedValue": {"raw": 99584000000}},
          {"asOfDate": "2024-09-30", "reportedValue": {"raw": 108807000000}}
        ]
      },
      {
        "meta": {"type": ["annualOperatingCashFlow"]},
        "annualOperatingCashFlow": [
          {"asOfDate": "2024-09-30", "reportedValue": {"raw": 118254000000}}
        ]
      },
      {
        "meta": {"type": ["annualCapitalExpenditure"]},
        "annualCapitalExpenditure": [
          {"asOfDate": "2024-09-30", "reportedValue": {"raw": -9447000000}}
        ]
      },
      {
        "meta": {"type": ["annualNetIncome"]},
        "annualNetIncome": [
          {"asOfDate": "2024-09-30", "reportedValue": {"raw": 93736000000}}
        ]
      }
    ],
    "error": null
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, Timeout: 5 * time.Second})
	return NewClient(f, nil,
		WithBaseURLs(srv.URL, srv.URL),
		WithNow(func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }),
	)
}

func TestFetch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "quoteSummary"):
			w.Write([]byte(quoteSummaryFixture))
		case strings.Contains(r.URL.Path, "timeseries"):
			w.Write([]byte(timeseriesFixture))
		default:
			http.NotFound(w, r)
		}
	})

	data, err := c.Fetch(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", data.Ticker)
	assert.Equal(t, "Apple Inc.", data.CompanyName)
	assert.Equal(t, SourceName, data.Source)

	// financialData.currentPrice wins over price.regularMarketPrice.
	require.NotNil(t, data.CurrentPrice)
	assert.Equal(t, 150.5, *data.CurrentPrice)

	require.NotNil(t, data.SharesOutstanding)
	assert.Equal(t, 16e9, *data.SharesOutstanding)
	require.NotNil(t, data.Beta)
	assert.Equal(t, 1.2, *data.Beta)
	require.NotNil(t, data.MarketCap)

	// Latest statement figures.
	require.NotNil(t, data.FreeCashFlow)
	assert.Equal(t, 108807000000.0, *data.FreeCashFlow)
	require.NotNil(t, data.OperatingCashFlow)
	require.NotNil(t, data.CapitalExpenditure)
	assert.Equal(t, -9447000000.0, *data.CapitalExpenditure)
	require.NotNil(t, data.NetIncome)

	// CAGR over the 5-year FCF history: (108807/73365)^(1/4)-1 ~ 10.35%.
	require.NotNil(t, data.HistoricalGrowthRate)
	assert.InDelta(t, 10.35, *data.HistoricalGrowthRate, 0.1)
}

func TestFetch_QuoteOnlyWhenFundamentalsFail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "quoteSummary") {
			w.Write([]byte(quoteSummaryFixture))
			return
		}
		http.NotFound(w, r)
	})

	data, err := c.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.NotNil(t, data.CurrentPrice)
	assert.Nil(t, data.FreeCashFlow)
	assert.Nil(t, data.HistoricalGrowthRate)
}

func TestFetch_NoQuoteData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary":{"result":[],"error":null}}`))
	})

	_, err := c.Fetch(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no quote data")
}

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		name    string
		history []float64
		want    float64
	}{
		{"too short", []float64{100}, 5.0},
		{"empty", nil, 5.0},
		{"non-positive endpoint", []float64{-10, 120}, 5.0},
		{"steady growth", []float64{100, 110, 121}, 10.0},
		{"clamped high", []float64{100, 300}, 30.0},
		{"clamped low", []float64{100, 10}, -10.0},
		{"decline within range", []float64{100, 95}, -5.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, growthRate(tt.history), 0.01)
		})
	}
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		w.Write([]byte(`{"quotes":[
			{"symbol":"APLE","quoteType":"ETF","isYahooFinance":true},
			{"symbol":"AAPL","quoteType":"EQUITY","isYahooFinance":true}
		]}`))
	})

	ticker, err := c.Search(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ticker)
}

func TestSearch_FallsBackToFirstQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quotes":[{"symbol":"SPY","quoteType":"ETF"}]}`))
	})

	ticker, err := c.Search(context.Background(), "spy")
	require.NoError(t, err)
	assert.Equal(t, "SPY", ticker)
}

func TestSearch_NoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quotes":[]}`))
	})

	_, err := c.Search(context.Background(), "nonexistent")
	require.Error(t, err)
}

func TestRiskFreeRate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "TNX")
		w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":4.3}}],"error":null}}`))
	})

	// 4.3 percentage points become 0.043.
	assert.InDelta(t, 0.043, c.RiskFreeRate(context.Background()), 1e-9)
}

func TestRiskFreeRate_FallbackOnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	assert.InDelta(t, 0.045, c.RiskFreeRate(context.Background()), 1e-9)
}

func TestMarketReturn(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.Equal(t, 0.10, c.MarketReturn(context.Background()))
}
