package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"PriceLakehouse/internal/frame"
	"PriceLakehouse/internal/model"
)

const eodhdBaseURL = "https://eodhd.com"

// EODHD implements Provider using the eodhd.com end-of-day API.
type EODHD struct {
	baseURL    string
	apiKey     string
	exchange   string // suffix appended to bare tickers, e.g. "US"
	httpClient HTTPClient
	now        func() time.Time
}

// EODHDOption is a configuration option for the EODHD provider.
type EODHDOption func(*EODHD)

// WithEODHDBaseURL sets the base URL for the API.
func WithEODHDBaseURL(baseURL string) EODHDOption {
	return func(e *EODHD) {
		if baseURL != "" {
			e.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithEODHDHTTPClient sets the HTTP client for the API.
func WithEODHDHTTPClient(c HTTPClient) EODHDOption {
	return func(e *EODHD) { e.httpClient = c }
}

// WithEODHDClock overrides the clock used to resolve backfill periods.
func WithEODHDClock(now func() time.Time) EODHDOption {
	return func(e *EODHD) { e.now = now }
}

// NewEODHD creates an EODHD provider for exchange (defaults to US).
func NewEODHD(apiKey, exchange, proxyURL string, opts ...EODHDOption) *EODHD {
	if exchange == "" {
		exchange = "US"
	}
	e := &EODHD{
		baseURL:    eodhdBaseURL,
		apiKey:     apiKey,
		exchange:   exchange,
		httpClient: newHTTPClient(proxyURL),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *EODHD) Name() string { return "eodhd" }

// ticker qualifies a bare symbol with the configured exchange code.
func (e *EODHD) ticker(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + "." + e.exchange
}

func (e *EODHD) eodURL(symbol string, w model.Window) string {
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", e.apiKey)
	q.Set("period", "d")
	switch w.Mode {
	case model.ModeBackfill:
		today := model.Today(e.now())
		if from, ok := w.Period.Start(today); ok {
			q.Set("from", from.String())
		}
		q.Set("to", today.String())
	default:
		q.Set("from", w.Start.String())
		q.Set("to", w.End.String())
	}
	return fmt.Sprintf("%s/api/eod/%s?%s", e.baseURL, url.PathEscape(e.ticker(symbol)), q.Encode())
}

// eodBar is one element of the /api/eod response.
type eodBar struct {
	Date          string              `json:"date"`
	Open          decimal.NullDecimal `json:"open"`
	High          decimal.NullDecimal `json:"high"`
	Low           decimal.NullDecimal `json:"low"`
	Close         decimal.NullDecimal `json:"close"`
	AdjustedClose decimal.NullDecimal `json:"adjusted_close"`
	Volume        decimal.NullDecimal `json:"volume"`
}

// History fetches daily bars for symbol over w.
func (e *EODHD) History(ctx context.Context, symbol string, w model.Window) (*frame.Raw, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.eodURL(symbol, w), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eodhd fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("eodhd read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eodhd: status %d, body: %s", resp.StatusCode, truncate(body, 256))
	}

	var bars []eodBar
	if err := json.Unmarshal(body, &bars); err != nil {
		return nil, fmt.Errorf("eodhd decode: %w", err)
	}
	return barsToFrame(bars)
}

func barsToFrame(bars []eodBar) (*frame.Raw, error) {
	raw := &frame.Raw{IndexName: "date"}
	if len(bars) == 0 {
		return raw, nil
	}
	names := []string{"Open", "High", "Low", "Close", "Adj Close", "Volume"}
	cols := make([][]frame.Cell, len(names))
	raw.Index = make([]time.Time, len(bars))
	for i, b := range bars {
		day, err := time.Parse(time.DateOnly, b.Date)
		if err != nil {
			return nil, fmt.Errorf("eodhd: bad date %q: %w", b.Date, err)
		}
		raw.Index[i] = day
		for j, v := range []decimal.NullDecimal{b.Open, b.High, b.Low, b.Close, b.AdjustedClose, b.Volume} {
			cols[j] = append(cols[j], nullCell(v))
		}
	}
	for j, name := range names {
		raw.Columns = append(raw.Columns, frame.Column{Label: frame.Atomic(name), Values: cols[j]})
	}
	return raw, nil
}

func nullCell(v decimal.NullDecimal) frame.Cell {
	if !v.Valid {
		return frame.Null
	}
	return frame.Num(v.Decimal.InexactFloat64())
}
