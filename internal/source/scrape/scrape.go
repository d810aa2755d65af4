// Package scrape collects third-party fair-value estimates from public
// valuation sites. These pages change layout without notice, so every
// extractor is best-effort: a page that yields no figure produces no
// estimate rather than an error.
package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/fairvalue-cli/internal/fetcher"
	"github.com/sells-group/fairvalue-cli/internal/model"
	antibot "github.com/sells-group/fairvalue-cli/internal/scrape"
)

// SourceName identifies the scraped-estimate group in comparison output.
const SourceName = "External Estimates"

// site describes one valuation page and how to pull a figure out of it.
type site struct {
	name        string
	methodology string
	url         func(ticker string) string
	extract     func(doc *goquery.Document, body string) *float64
}

// Scraper fetches external fair-value estimates. It implements
// source.EstimateSource.
type Scraper struct {
	http    *fetcher.HTTPFetcher
	limiter *rate.Limiter
	sites   []site
	log     *zap.Logger
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithDelay sets the minimum interval between page fetches.
func WithDelay(r rate.Limit) Option {
	return func(s *Scraper) { s.limiter = rate.NewLimiter(r, 1) }
}

// NewScraper creates a Scraper with the default site list and a
// one-request-per-two-seconds politeness limit. A nil logger is
// replaced with a nop logger.
func NewScraper(http *fetcher.HTTPFetcher, log *zap.Logger, opts ...Option) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scraper{
		http:    http,
		limiter: rate.NewLimiter(rate.Limit(0.5), 1),
		sites:   defaultSites(),
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements source.EstimateSource.
func (s *Scraper) Name() string { return SourceName }

// Estimates implements source.EstimateSource. Each configured site is
// fetched in turn behind the politeness limiter; sites that fail or
// yield nothing are logged and skipped.
func (s *Scraper) Estimates(ctx context.Context, ticker string) ([]model.SourceEstimate, error) {
	ticker = model.NormalizeTicker(ticker)

	var estimates []model.SourceEstimate
	for _, st := range s.sites {
		if err := s.limiter.Wait(ctx); err != nil {
			return estimates, eris.Wrap(err, "scrape: rate limit wait")
		}

		value, err := s.scrapeSite(ctx, st, ticker)
		if err != nil {
			s.log.Warn("scrape: site failed",
				zap.String("site", st.name),
				zap.String("ticker", ticker),
				zap.Error(err),
			)
			continue
		}
		if value == nil {
			s.log.Debug("scrape: no estimate on page",
				zap.String("site", st.name), zap.String("ticker", ticker))
			continue
		}

		estimates = append(estimates, model.SourceEstimate{
			Source:      st.name,
			Methodology: st.methodology,
			FairValue:   value,
		})
	}

	return estimates, nil
}

func (s *Scraper) scrapeSite(ctx context.Context, st site, ticker string) (*float64, error) {
	resp, body, err := s.http.GetResponse(ctx, st.url(ticker))
	if err != nil {
		return nil, err
	}
	if blocked, bt := antibot.DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("blocked by anti-bot protection (%s)", bt)
	}
	if resp.StatusCode != 200 {
		return nil, eris.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}
	return st.extract(doc, string(body)), nil
}

func defaultSites() []site {
	return []site{
		{
			name:        "Yahoo Finance Analysts",
			methodology: "Analyst consensus price target",
			url: func(ticker string) string {
				return fmt.Sprintf("https://finance.yahoo.com/quote/%s/analysis", ticker)
			},
			extract: extractYahooTarget,
		},
		{
			name:        "Finbox",
			methodology: "Multi-model fair value",
			url: func(ticker string) string {
				return fmt.Sprintf("https://finbox.com/NASDAQGS:%s", ticker)
			},
			extract: extractLabeledDollar("fair value"),
		},
		{
			name:        "GuruFocus",
			methodology: "GF Value",
			url: func(ticker string) string {
				return fmt.Sprintf("https://www.gurufocus.com/stock/%s/summary", ticker)
			},
			extract: extractLabeledDollar("gf value"),
		},
		{
			name:        "Simply Wall St",
			methodology: "Discounted cash flow",
			url: func(ticker string) string {
				return fmt.Sprintf("https://simplywall.st/stocks/us/%s", strings.ToLower(ticker))
			},
			extract: extractLabeledDollar("fair value"),
		},
	}
}

var targetMeanPricePattern = regexp.MustCompile(`"targetMeanPrice"\s*:\s*\{?\s*"?raw"?\s*:?\s*([\d.]+)`)

// extractYahooTarget reads the mean analyst price target, preferring
// the labeled DOM element and falling back to the embedded JSON blob.
func extractYahooTarget(doc *goquery.Document, body string) *float64 {
	if v := parseDollar(doc.Find(`[data-field="targetMeanPrice"]`).First().Text()); v != nil {
		return v
	}
	if m := targetMeanPricePattern.FindStringSubmatch(body); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f > 0 {
			return &f
		}
	}
	return nil
}

// extractLabeledDollar finds a dollar figure in the element nearest a
// case-insensitive label, with a whole-page regex fallback.
func extractLabeledDollar(label string) func(doc *goquery.Document, body string) *float64 {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `[^$]{0,80}\$\s*([\d,]+(?:\.\d+)?)`)
	return func(doc *goquery.Document, body string) *float64 {
		var found *float64
		doc.Find("div,span,td,p,h2,h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := sel.Text()
			if len(text) > 200 || !strings.Contains(strings.ToLower(text), label) {
				return true
			}
			if v := parseDollar(text); v != nil {
				found = v
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
		if m := pattern.FindStringSubmatch(body); m != nil {
			if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil && f > 0 {
				return &f
			}
		}
		return nil
	}
}

var dollarPattern = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)`)

func parseDollar(text string) *float64 {
	m := dollarPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || f <= 0 {
		return nil
	}
	return &f
}
