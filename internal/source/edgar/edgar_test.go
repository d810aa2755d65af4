package edgar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/fairvalue-cli/internal/fetcher"
)

const tickersFixture = `{
  "0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
  "1": {"cik_str": 789019, "ticker": "MSFT", "title": "Microsoft Corp"}
}`

const submissionsFixture = `{
  "filings": {
    "recent": {
      "accessionNumber": ["0000320193-25-000001", "0000320193-24-000123"],
      "form": ["8-K", "10-K"],
      "primaryDocument": ["a8k.htm", "aapl-20240928.htm"]
    }
  }
}`

const filingFixture = `<html><body>
<p>Net income was $ 93,736 million for fiscal 2024.</p>
<p>Total debt of $ 106,629 million remained outstanding.</p>
<p>Cash and cash equivalents were $ 29,943 million at year end.</p>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, Timeout: 5 * time.Second})
	return NewClient(f, t.TempDir(), nil, WithBaseURLs(srv.URL, srv.URL))
}

func TestFetch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "company_tickers"):
			w.Write([]byte(tickersFixture))
		case strings.Contains(r.URL.Path, "/submissions/"):
			assert.Contains(t, r.URL.Path, "CIK0000320193.json")
			w.Write([]byte(submissionsFixture))
		case strings.Contains(r.URL.Path, "/Archives/"):
			// CIK without leading zeros, accession without dashes.
			assert.Contains(t, r.URL.Path, "/320193/000032019324000123/aapl-20240928.htm")
			w.Write([]byte(filingFixture))
		default:
			http.NotFound(w, r)
		}
	})

	data, err := c.Fetch(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", data.Ticker)
	assert.Equal(t, SourceName, data.Source)

	require.NotNil(t, data.NetIncome)
	assert.Equal(t, 93_736_000_000.0, *data.NetIncome)
	require.NotNil(t, data.TotalDebt)
	assert.Equal(t, 106_629_000_000.0, *data.TotalDebt)
	require.NotNil(t, data.Cash)
	assert.Equal(t, 29_943_000_000.0, *data.Cash)

	// The filing carries no market data.
	assert.Nil(t, data.CurrentPrice)
	assert.Nil(t, data.SharesOutstanding)
}

func TestFetch_UnknownTicker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tickersFixture))
	})

	_, err := c.Fetch(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CIK")
}

func TestFetch_NoTenK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "company_tickers"):
			w.Write([]byte(tickersFixture))
		case strings.Contains(r.URL.Path, "/submissions/"):
			w.Write([]byte(`{"filings":{"recent":{"accessionNumber":["x"],"form":["8-K"],"primaryDocument":["a.htm"]}}}`))
		default:
			http.NotFound(w, r)
		}
	})

	_, err := c.Fetch(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no 10-K")
}

func TestParseFiling_MissingFigures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	path := filepath.Join(t.TempDir(), "filing.htm")
	require.NoError(t, os.WriteFile(path, []byte("<html><body>Nothing quantitative here.</body></html>"), 0o644))

	data, err := c.parseFiling(path)
	require.NoError(t, err)
	assert.Nil(t, data.NetIncome)
	assert.Nil(t, data.TotalDebt)
	assert.Nil(t, data.Cash)
}

func TestExtractFromWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statements.xlsx")

	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("Income Statement")
	require.NoError(t, err)
	for _, row := range [][]string{
		{"Metric", "FY2024"},
		{"Total Revenue", "391,035,000,000"},
		{"Net Income", "93,736,000,000"},
		{"Free Cash Flow", "108,807,000,000"},
		{"Shares Outstanding", "15,408,095,000"},
		{"Gross Margin", "not a number"},
	} {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	require.NoError(t, wb.Save(path))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	data, err := c.ExtractFromWorkbook(path)
	require.NoError(t, err)

	require.NotNil(t, data.Revenue)
	assert.Equal(t, 391_035_000_000.0, *data.Revenue)
	require.NotNil(t, data.NetIncome)
	assert.Equal(t, 93_736_000_000.0, *data.NetIncome)
	require.NotNil(t, data.FreeCashFlow)
	require.NotNil(t, data.SharesOutstanding)
	assert.Nil(t, data.TotalDebt)
}

func TestExtractFromWorkbook_MissingFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.ExtractFromWorkbook(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
}
