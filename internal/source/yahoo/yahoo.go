// Package yahoo retrieves company financials and market rates from the
// Yahoo Finance JSON endpoints.
package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fairvalue-cli/internal/fetcher"
	"github.com/sells-group/fairvalue-cli/internal/model"
)

// SourceName identifies this source in comparison output.
const SourceName = "Yahoo Finance API"

const (
	defaultQuoteURL = "https://query2.finance.yahoo.com"
	defaultChartURL = "https://query1.finance.yahoo.com"

	// Historical FCF growth is clamped to this range (percentage
	// units) before it reaches the valuation model.
	minGrowthPct = -10.0
	maxGrowthPct = 30.0

	// Assumed when FCF history is too short to compute a CAGR.
	defaultGrowthPct = 5.0

	fallbackRiskFree = 0.045
	marketReturn     = 0.10

	historyYears = 5
)

// Client fetches financial data from Yahoo Finance.
type Client struct {
	http     *fetcher.HTTPFetcher
	quoteURL string
	chartURL string
	log      *zap.Logger
	now      func() time.Time // injectable for testing
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs overrides the quote and chart endpoints, mainly for tests.
func WithBaseURLs(quoteURL, chartURL string) Option {
	return func(c *Client) {
		c.quoteURL = quoteURL
		c.chartURL = chartURL
	}
}

// WithNow fixes the clock used for timeseries windows.
func WithNow(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Yahoo Finance client on top of the shared HTTP
// fetcher. A nil logger is replaced with a nop logger.
func NewClient(http *fetcher.HTTPFetcher, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		http:     http,
		quoteURL: defaultQuoteURL,
		chartURL: defaultChartURL,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements source.Source.
func (c *Client) Name() string { return SourceName }

// fmtValue is Yahoo's formatted-number wrapper; only the raw value matters.
type fmtValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				RegularMarketPrice fmtValue `json:"regularMarketPrice"`
				LongName           string   `json:"longName"`
			} `json:"price"`
			KeyStatistics *struct {
				SharesOutstanding fmtValue `json:"sharesOutstanding"`
				Beta              fmtValue `json:"beta"`
			} `json:"defaultKeyStatistics"`
			SummaryDetail *struct {
				MarketCap fmtValue `json:"marketCap"`
			} `json:"summaryDetail"`
			FinancialData *struct {
				CurrentPrice fmtValue `json:"currentPrice"`
			} `json:"financialData"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"quoteSummary"`
}

type timeseriesResponse struct {
	Timeseries struct {
		Result []timeseriesBlock `json:"result"`
		Error  any               `json:"error"`
	} `json:"timeseries"`
}

type timeseriesBlock struct {
	Meta struct {
		Type []string `json:"type"`
	} `json:"meta"`

	FreeCashFlow           []tsPoint `json:"annualFreeCashFlow"`
	OperatingCashFlow      []tsPoint `json:"annualOperatingCashFlow"`
	CapitalExpenditure     []tsPoint `json:"annualCapitalExpenditure"`
	NetIncome              []tsPoint `json:"annualNetIncome"`
	TotalDebt              []tsPoint `json:"annualTotalDebt"`
	Cash                   []tsPoint `json:"annualCashAndCashEquivalents"`
	ChangeInWorkingCapital []tsPoint `json:"annualChangeInWorkingCapital"`
}

type tsPoint struct {
	AsOfDate      string   `json:"asOfDate"`
	ReportedValue fmtValue `json:"reportedValue"`
}

// Fetch implements source.Source: one quote-summary call for market
// data plus one fundamentals-timeseries call for statement figures.
func (c *Client) Fetch(ctx context.Context, ticker string) (*model.FinancialData, error) {
	ticker = model.NormalizeTicker(ticker)

	data := &model.FinancialData{
		Ticker:    ticker,
		Source:    SourceName,
		FetchedAt: c.now().UTC(),
	}

	if err := c.fillQuote(ctx, ticker, data); err != nil {
		return nil, err
	}
	if err := c.fillFundamentals(ctx, ticker, data); err != nil {
		// Quote data alone is not enough for a DCF, but the caller
		// decides that; log and hand back what we have.
		c.log.Warn("yahoo: fundamentals unavailable",
			zap.String("ticker", ticker), zap.Error(err))
	}

	c.log.Info("yahoo: financial data fetched",
		zap.String("ticker", ticker),
		zap.Bool("has_fcf", data.FreeCashFlow != nil),
		zap.Bool("has_shares", data.SharesOutstanding != nil),
	)
	return data, nil
}

func (c *Client) fillQuote(ctx context.Context, ticker string, data *model.FinancialData) error {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=price,defaultKeyStatistics,summaryDetail,financialData",
		c.quoteURL, url.PathEscape(ticker))

	var resp quoteSummaryResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return eris.Wrapf(err, "yahoo: quote summary for %s", ticker)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return eris.Errorf("yahoo: no quote data for %s", ticker)
	}

	r := resp.QuoteSummary.Result[0]
	if r.Price != nil {
		data.CompanyName = r.Price.LongName
		data.CurrentPrice = r.Price.RegularMarketPrice.Raw
	}
	if r.FinancialData != nil && r.FinancialData.CurrentPrice.Raw != nil {
		data.CurrentPrice = r.FinancialData.CurrentPrice.Raw
	}
	if r.KeyStatistics != nil {
		data.SharesOutstanding = r.KeyStatistics.SharesOutstanding.Raw
		data.Beta = r.KeyStatistics.Beta.Raw
	}
	if r.SummaryDetail != nil {
		data.MarketCap = r.SummaryDetail.MarketCap.Raw
	}
	return nil
}

func (c *Client) fillFundamentals(ctx context.Context, ticker string, data *model.FinancialData) error {
	now := c.now()
	period1 := now.AddDate(-historyYears-1, 0, 0).Unix()
	period2 := now.Unix()

	types := "annualFreeCashFlow,annualOperatingCashFlow,annualCapitalExpenditure," +
		"annualNetIncome,annualTotalDebt,annualCashAndCashEquivalents,annualChangeInWorkingCapital"
	u := fmt.Sprintf("%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s?type=%s&period1=%d&period2=%d",
		c.chartURL, url.PathEscape(ticker), types, period1, period2)

	var resp timeseriesResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return eris.Wrapf(err, "yahoo: fundamentals timeseries for %s", ticker)
	}
	if len(resp.Timeseries.Result) == 0 {
		return eris.Errorf("yahoo: no fundamentals for %s", ticker)
	}

	var fcfHistory []float64
	for _, block := range resp.Timeseries.Result {
		if pts := block.FreeCashFlow; len(pts) > 0 {
			fcfHistory = values(pts)
			data.FreeCashFlow = latest(pts)
		}
		if pts := block.OperatingCashFlow; len(pts) > 0 {
			data.OperatingCashFlow = latest(pts)
		}
		if pts := block.CapitalExpenditure; len(pts) > 0 {
			data.CapitalExpenditure = latest(pts)
		}
		if pts := block.NetIncome; len(pts) > 0 {
			data.NetIncome = latest(pts)
		}
		if pts := block.TotalDebt; len(pts) > 0 {
			data.TotalDebt = latest(pts)
		}
		if pts := block.Cash; len(pts) > 0 {
			data.Cash = latest(pts)
		}
		if pts := block.ChangeInWorkingCapital; len(pts) > 0 {
			data.ChangeInNWC = latest(pts)
		}
	}

	data.HistoricalGrowthRate = model.Ptr(growthRate(fcfHistory))
	return nil
}

// latest returns the most recent reported value of a timeseries.
// Points arrive oldest first.
func latest(pts []tsPoint) *float64 {
	for i := len(pts) - 1; i >= 0; i-- {
		if pts[i].ReportedValue.Raw != nil {
			return pts[i].ReportedValue.Raw
		}
	}
	return nil
}

func values(pts []tsPoint) []float64 {
	out := make([]float64, 0, len(pts))
	for _, p := range pts {
		if p.ReportedValue.Raw != nil {
			out = append(out, *p.ReportedValue.Raw)
		}
	}
	return out
}

// growthRate computes the compound annual growth rate of an FCF history
// (oldest first), in percentage units clamped to [-10, 30]. Histories
// too short for a CAGR, or with a non-positive endpoint, fall back to a
// flat 5%.
func growthRate(history []float64) float64 {
	if len(history) < 2 {
		return defaultGrowthPct
	}
	oldest := history[0]
	newest := history[len(history)-1]
	if oldest <= 0 || newest <= 0 {
		return defaultGrowthPct
	}
	years := float64(len(history) - 1)
	cagr := (math.Pow(newest/oldest, 1/years) - 1) * 100
	return min(max(cagr, minGrowthPct), maxGrowthPct)
}

type searchResponse struct {
	Quotes []struct {
		Symbol         string `json:"symbol"`
		QuoteType      string `json:"quoteType"`
		IsYahooFinance bool   `json:"isYahooFinance"`
	} `json:"quotes"`
}

// Search resolves a free-text company name to a ticker symbol using
// the autocomplete endpoint, preferring equity results.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	u := fmt.Sprintf("%s/v1/finance/search?q=%s", c.quoteURL, url.QueryEscape(query))

	var resp searchResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return "", eris.Wrapf(err, "yahoo: search %q", query)
	}
	if len(resp.Quotes) == 0 {
		return "", eris.Errorf("yahoo: no ticker found for %q", query)
	}
	for _, q := range resp.Quotes {
		if q.QuoteType == "EQUITY" {
			return q.Symbol, nil
		}
	}
	return resp.Quotes[0].Symbol, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// RiskFreeRate implements source.RateSource using the 10-year Treasury
// yield (^TNX). Any retrieval failure falls back to 4.5%.
func (c *Client) RiskFreeRate(ctx context.Context) float64 {
	u := fmt.Sprintf("%s/v8/finance/chart/%s", c.chartURL, url.PathEscape("^TNX"))

	var resp chartResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil || len(resp.Chart.Result) == 0 {
		c.log.Warn("yahoo: could not fetch risk-free rate, using default",
			zap.Float64("default", fallbackRiskFree), zap.Error(err))
		return fallbackRiskFree
	}

	rate := resp.Chart.Result[0].Meta.RegularMarketPrice
	if rate > 1 {
		// Quoted in percentage points.
		rate /= 100
	}
	if rate <= 0 {
		return fallbackRiskFree
	}
	return rate
}

// MarketReturn implements source.RateSource. The long-run S&P 500
// average is used as a constant expectation.
func (c *Client) MarketReturn(context.Context) float64 {
	return marketReturn
}
