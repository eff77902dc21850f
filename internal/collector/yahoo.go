package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"PriceLakehouse/internal/frame"
	"PriceLakehouse/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo implements Provider using the Yahoo Finance chart API.
type Yahoo struct {
	baseURL    string
	httpClient HTTPClient
	symbolMap  map[string]string // internal symbol to Yahoo ticker
}

// YahooOption is a configuration option for the Yahoo provider.
type YahooOption func(*Yahoo)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) YahooOption {
	return func(y *Yahoo) {
		if baseURL != "" {
			y.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(c HTTPClient) YahooOption {
	return func(y *Yahoo) { y.httpClient = c }
}

// WithSymbolAlias maps an internal symbol to the ticker Yahoo knows it by.
func WithSymbolAlias(symbol, ticker string) YahooOption {
	return func(y *Yahoo) { y.symbolMap[symbol] = ticker }
}

// NewYahoo creates a Yahoo provider. proxyURL may be empty.
func NewYahoo(proxyURL string, opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		baseURL:    yahooBaseURL,
		httpClient: newHTTPClient(proxyURL),
		symbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) ticker(symbol string) string {
	if mapped, ok := y.symbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// chartURL builds the daily chart request. Incremental windows are sent as
// [start, end+1day) so the end date is included.
func (y *Yahoo) chartURL(symbol string, w model.Window) string {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("includeAdjustedClose", "true")
	q.Set("events", "div,splits")
	switch w.Mode {
	case model.ModeBackfill:
		q.Set("range", string(w.Period))
	default:
		q.Set("period1", strconv.FormatInt(w.Start.In(time.UTC).Unix(), 10))
		q.Set("period2", strconv.FormatInt(w.End.AddDays(1).In(time.UTC).Unix(), 10))
	}
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(y.ticker(symbol)), q.Encode())
}

// History fetches daily bars for symbol over w.
func (y *Yahoo) History(ctx context.Context, symbol string, w model.Window) (*frame.Raw, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.chartURL(symbol, w), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return nil, fmt.Errorf("yahoo api error: %s (status %d)", desc.String(), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, truncate(body, 256))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("yahoo: malformed response")
	}
	return parseChart(body)
}

// parseChart converts a chart response into a frame with composite
// (field, ticker) labels, the way multi-ticker downloads are shaped.
func parseChart(body []byte) (*frame.Raw, error) {
	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("yahoo: response has no result")
	}
	timestamps := result.Get("timestamp").Array()
	raw := &frame.Raw{IndexName: "Date"}
	if len(timestamps) == 0 {
		return raw, nil
	}

	loc := exchangeLocation(result.Get("meta"))
	raw.Index = make([]time.Time, len(timestamps))
	for i, ts := range timestamps {
		raw.Index[i] = time.Unix(ts.Int(), 0).In(loc)
	}

	ticker := result.Get("meta.symbol").String()
	quote := result.Get("indicators.quote.0")
	for _, f := range []struct{ name, path string }{
		{"Open", "open"},
		{"High", "high"},
		{"Low", "low"},
		{"Close", "close"},
		{"Volume", "volume"},
	} {
		series := quote.Get(f.path)
		if !series.Exists() {
			continue
		}
		raw.Columns = append(raw.Columns, frame.Column{
			Label:  frame.Composite(f.name, ticker),
			Values: cells(series, len(timestamps)),
		})
	}
	if adj := result.Get("indicators.adjclose.0.adjclose"); adj.Exists() {
		raw.Columns = append(raw.Columns, frame.Column{
			Label:  frame.Composite("Adj Close", ticker),
			Values: cells(adj, len(timestamps)),
		})
	}
	return raw, nil
}

// cells reads a JSON number array; nulls and short arrays become null cells.
func cells(series gjson.Result, n int) []frame.Cell {
	out := make([]frame.Cell, n)
	for i, v := range series.Array() {
		if i >= n {
			break
		}
		if v.Type == gjson.Number {
			out[i] = frame.Num(v.Float())
		}
	}
	return out
}

func exchangeLocation(meta gjson.Result) *time.Location {
	if name := meta.Get("exchangeTimezoneName").String(); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if off := meta.Get("gmtoffset"); off.Exists() {
		return time.FixedZone(meta.Get("timezone").String(), int(off.Int()))
	}
	return time.UTC
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
