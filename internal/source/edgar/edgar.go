// Package edgar retrieves company financials from SEC EDGAR 10-K
// filings. Automated extraction from filing HTML is best-effort; the
// regex pass recovers a handful of headline figures and the workbook
// reader handles the financial-statement exhibits companies attach as
// spreadsheets.
package edgar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fairvalue-cli/internal/fetcher"
	"github.com/sells-group/fairvalue-cli/internal/model"
)

// SourceName identifies this source in comparison output.
const SourceName = "SEC 10-K Filing"

const (
	defaultBaseURL = "https://www.sec.gov"
	defaultDataURL = "https://data.sec.gov"

	// Filing text reports figures in millions.
	millionScale = 1_000_000
)

// Client downloads and parses SEC filings.
type Client struct {
	http        *fetcher.HTTPFetcher
	baseURL     string
	dataURL     string
	downloadDir string
	log         *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs overrides the www and data endpoints, mainly for tests.
func WithBaseURLs(baseURL, dataURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
		c.dataURL = dataURL
	}
}

// NewClient creates an EDGAR client. Filings are downloaded under
// downloadDir. A nil logger is replaced with a nop logger.
func NewClient(http *fetcher.HTTPFetcher, downloadDir string, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		http:        http,
		baseURL:     defaultBaseURL,
		dataURL:     defaultDataURL,
		downloadDir: downloadDir,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements source.Source.
func (c *Client) Name() string { return SourceName }

// Fetch implements source.Source: resolve the ticker to a CIK, find
// the latest 10-K, download its primary document, and extract what the
// regex pass can find.
func (c *Client) Fetch(ctx context.Context, ticker string) (*model.FinancialData, error) {
	ticker = model.NormalizeTicker(ticker)

	cik, err := c.resolveCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	accession, document, err := c.latestTenK(ctx, cik)
	if err != nil {
		return nil, err
	}

	path, err := c.downloadFiling(ctx, cik, accession, document)
	if err != nil {
		return nil, err
	}

	data, err := c.parseFiling(path)
	if err != nil {
		return nil, err
	}
	data.Ticker = ticker
	data.Source = SourceName
	data.FetchedAt = time.Now().UTC()

	c.log.Info("edgar: filing parsed",
		zap.String("ticker", ticker),
		zap.String("cik", cik),
		zap.String("accession", accession),
	)
	return data, nil
}

type companyTickers map[string]struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// resolveCIK maps a ticker symbol to its zero-padded CIK using the
// public company-tickers index.
func (c *Client) resolveCIK(ctx context.Context, ticker string) (string, error) {
	u := c.baseURL + "/files/company_tickers.json"

	var index companyTickers
	if err := c.http.GetJSON(ctx, u, &index); err != nil {
		return "", eris.Wrap(err, "edgar: fetch company tickers")
	}

	for _, entry := range index {
		if strings.EqualFold(entry.Ticker, ticker) {
			return fmt.Sprintf("%010d", entry.CIK), nil
		}
	}
	return "", eris.Errorf("edgar: no CIK for ticker %s", ticker)
}

type submissionsResponse struct {
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// latestTenK finds the most recent 10-K accession number and primary
// document name in the company's submissions feed.
func (c *Client) latestTenK(ctx context.Context, cik string) (accession, document string, err error) {
	u := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik)

	var resp submissionsResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return "", "", eris.Wrapf(err, "edgar: submissions for CIK %s", cik)
	}

	recent := resp.Filings.Recent
	for i, form := range recent.Form {
		if form != "10-K" {
			continue
		}
		if i >= len(recent.AccessionNumber) || i >= len(recent.PrimaryDocument) {
			break
		}
		return recent.AccessionNumber[i], recent.PrimaryDocument[i], nil
	}
	return "", "", eris.Errorf("edgar: no 10-K filing for CIK %s", cik)
}

// downloadFiling fetches the primary document into the download dir
// and returns the local path.
func (c *Client) downloadFiling(ctx context.Context, cik, accession, document string) (string, error) {
	accessionFlat := strings.ReplaceAll(accession, "-", "")
	u := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		c.baseURL, strings.TrimLeft(cik, "0"), accessionFlat, document)

	path := filepath.Join(c.downloadDir, cik, accession, document)
	if _, err := c.http.DownloadToFile(ctx, u, path); err != nil {
		return "", eris.Wrapf(err, "edgar: download filing %s", accession)
	}
	return path, nil
}

// Filing-text patterns for headline figures. Values are quoted in
// millions in the narrative sections these match.
var filingPatterns = map[string]*regexp.Regexp{
	"net_income": regexp.MustCompile(`(?i)Net\s+Income[^\d$]*[\$\s]+([\d,]+)`),
	"total_debt": regexp.MustCompile(`(?i)Total\s+Debt[^\d$]*[\$\s]+([\d,]+)`),
	"cash":       regexp.MustCompile(`(?i)Cash\s+and\s+Cash\s+Equivalents[^\d$]*[\$\s]+([\d,]+)`),
}

// parseFiling extracts headline figures from a downloaded filing.
func (c *Client) parseFiling(path string) (*model.FinancialData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: read filing %s", path)
	}

	data := &model.FinancialData{}
	text := string(content)

	for key, pattern := range filingPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		value *= millionScale
		switch key {
		case "net_income":
			data.NetIncome = model.Ptr(value)
		case "total_debt":
			data.TotalDebt = model.Ptr(value)
		case "cash":
			data.Cash = model.Ptr(value)
		}
	}

	return data, nil
}

// workbookFields maps metric labels found in financial-statement
// workbooks to record fields.
var workbookFields = []struct {
	label string
	set   func(*model.FinancialData, float64)
}{
	{"net income", func(d *model.FinancialData, v float64) { d.NetIncome = model.Ptr(v) }},
	{"free cash flow", func(d *model.FinancialData, v float64) { d.FreeCashFlow = model.Ptr(v) }},
	{"operating cash flow", func(d *model.FinancialData, v float64) { d.OperatingCashFlow = model.Ptr(v) }},
	{"capital expenditure", func(d *model.FinancialData, v float64) { d.CapitalExpenditure = model.Ptr(v) }},
	{"total debt", func(d *model.FinancialData, v float64) { d.TotalDebt = model.Ptr(v) }},
	{"shares outstanding", func(d *model.FinancialData, v float64) { d.SharesOutstanding = model.Ptr(v) }},
	{"revenue", func(d *model.FinancialData, v float64) { d.Revenue = model.Ptr(v) }},
}

// ExtractFromWorkbook reads financials from an official XLSX statement
// file with metric labels in the first column and figures in the
// second. It is the fallback when filing HTML yields nothing usable.
func (c *Client) ExtractFromWorkbook(path string) (*model.FinancialData, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: read workbook %s", path)
	}

	data := &model.FinancialData{Source: "Official Financial Statements"}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(row[0]))
		value, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row[1]), ",", ""), 64)
		if err != nil {
			continue
		}
		for _, field := range workbookFields {
			if strings.Contains(label, field.label) {
				field.set(data, value)
				break
			}
		}
	}

	return data, nil
}
