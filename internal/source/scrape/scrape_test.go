package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/fairvalue-cli/internal/fetcher"
)

const yahooAnalysisPage = `<html><body>
<section><span data-field="targetMeanPrice">$ 245.50</span></section>
</body></html>`

const finboxPage = `<html><body>
<div class="summary">
  <span>Fair Value</span>
  <span>$182.30</span>
</div>
</body></html>`

func newTestScraper(t *testing.T, pages map[string]string) *Scraper {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, Timeout: 5 * time.Second})
	s := NewScraper(f, nil, WithDelay(rate.Inf))
	for i := range s.sites {
		path := "/" + s.sites[i].name
		s.sites[i].url = func(string) string { return srv.URL + path }
	}
	return s
}

func TestEstimates(t *testing.T) {
	s := newTestScraper(t, map[string]string{
		"/Yahoo Finance Analysts": yahooAnalysisPage,
		"/Finbox":                 finboxPage,
	})

	estimates, err := s.Estimates(context.Background(), "aapl")
	require.NoError(t, err)
	require.Len(t, estimates, 2)

	assert.Equal(t, "Yahoo Finance Analysts", estimates[0].Source)
	require.NotNil(t, estimates[0].FairValue)
	assert.Equal(t, 245.50, *estimates[0].FairValue)

	assert.Equal(t, "Finbox", estimates[1].Source)
	assert.Equal(t, "Multi-model fair value", estimates[1].Methodology)
	require.NotNil(t, estimates[1].FairValue)
	assert.Equal(t, 182.30, *estimates[1].FairValue)
}

func TestEstimates_PageWithoutFigure(t *testing.T) {
	s := newTestScraper(t, map[string]string{
		"/Finbox": `<html><body><div>Fair Value: sign in to view</div></body></html>`,
	})

	estimates, err := s.Estimates(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Empty(t, estimates)
}

func TestEstimates_BlockedSiteSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Please complete the reCAPTCHA to continue</body></html>`))
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, Timeout: 5 * time.Second})
	s := NewScraper(f, nil, WithDelay(rate.Inf))
	for i := range s.sites {
		s.sites[i].url = func(string) string { return srv.URL }
	}

	estimates, err := s.Estimates(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Empty(t, estimates)
}

func TestExtractYahooTarget_JSONFallback(t *testing.T) {
	body := `<html><script>root.App.main = {"targetMeanPrice":{"raw":198.75,"fmt":"198.75"}}</script></html>`
	doc := mustDoc(t, body)

	v := extractYahooTarget(doc, body)
	require.NotNil(t, v)
	assert.Equal(t, 198.75, *v)
}

func TestExtractLabeledDollar_BodyFallback(t *testing.T) {
	body := `<html><body><script>{"label":"GF Value","value":"$142.10"}</script></body></html>`
	doc := mustDoc(t, body)

	v := extractLabeledDollar("gf value")(doc, body)
	require.NotNil(t, v)
	assert.Equal(t, 142.10, *v)
}

func TestParseDollar(t *testing.T) {
	tests := []struct {
		text string
		want *float64
	}{
		{"Fair Value $182.30", ptr(182.30)},
		{"$ 1,234.56", ptr(1234.56)},
		{"no figure here", nil},
		{"$0", nil},
	}
	for _, tt := range tests {
		got := parseDollar(tt.text)
		if tt.want == nil {
			assert.Nil(t, got, tt.text)
			continue
		}
		require.NotNil(t, got, tt.text)
		assert.Equal(t, *tt.want, *got, tt.text)
	}
}

func ptr(f float64) *float64 { return &f }

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}
