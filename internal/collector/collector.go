package collector

import (
	"context"
	"errors"
	"fmt"

	"PriceLakehouse/internal/frame"
	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/model"
)

// Result is the outcome of fetching one symbol: rows on success, the
// reason otherwise. A successful fetch may still have no rows.
type Result struct {
	Symbol  string
	Columns []model.Field
	Rows    []model.PriceRow
	Err     error
}

func (r Result) Failed() bool { return r.Err != nil }
func (r Result) Empty() bool  { return len(r.Rows) == 0 }

// Collector drives a Provider across symbols and normalizes the responses.
type Collector struct {
	Provider Provider
}

// NewCollector creates a new Collector.
func NewCollector(p Provider) *Collector {
	return &Collector{Provider: p}
}

// Fetch requests one symbol over w and normalizes it. Provider and shape
// errors are logged and carried in the Result, never returned.
func (c *Collector) Fetch(ctx context.Context, symbol string, w model.Window) Result {
	res := Result{Symbol: symbol}
	raw, err := c.Provider.History(ctx, symbol, w)
	if err != nil {
		res.Err = fmt.Errorf("%s history: %w", c.Provider.Name(), err)
		logger.Warnf("fetch %s failed: %v", symbol, res.Err)
		return res
	}
	if raw.Empty() {
		logger.Infof("fetch %s: no data for %s", symbol, w)
		return res
	}

	canon, err := frame.Normalize(symbol, raw)
	if err != nil {
		res.Err = fmt.Errorf("normalize: %w", err)
		logger.Warnf("fetch %s failed: %v", symbol, res.Err)
		return res
	}
	res.Columns = canon.Columns
	res.Rows = canon.Rows
	logger.Debugf("fetch %s: %d rows, columns %v", symbol, len(res.Rows), res.Columns)
	return res
}

// Extract fetches every symbol in order, one at a time, and concatenates the
// non-empty results. The per-symbol results are returned alongside for
// reporting. An empty symbol list returns at once without calling the
// provider. A canceled context stops the loop; symbols not reached are
// reported as failed.
func (c *Collector) Extract(ctx context.Context, symbols []string, w model.Window) (model.Dataset, []Result) {
	var ds model.Dataset
	if len(symbols) == 0 {
		logger.Warnf("extract: no symbols configured")
		return ds, nil
	}

	results := make([]Result, 0, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Symbol: sym, Err: err})
			continue
		}
		res := c.Fetch(ctx, sym, w)
		results = append(results, res)
		if !res.Failed() && !res.Empty() {
			ds.Rows = append(ds.Rows, res.Rows...)
		}
	}

	logger.Infof("extract %s: %d rows from %d/%d symbols", w, ds.Len(), len(Succeeded(results)), len(symbols))
	return ds, results
}

// Succeeded returns the symbols that contributed rows.
func Succeeded(results []Result) []string {
	var out []string
	for _, r := range results {
		if !r.Failed() && !r.Empty() {
			out = append(out, r.Symbol)
		}
	}
	return out
}

// Failures returns the symbols whose fetch failed.
func Failures(results []Result) []string {
	var out []string
	for _, r := range results {
		if r.Failed() {
			out = append(out, r.Symbol)
		}
	}
	return out
}

// FailureError joins the per-symbol errors, or returns nil.
func FailureError(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Failed() {
			errs = append(errs, fmt.Errorf("%s: %w", r.Symbol, r.Err))
		}
	}
	return errors.Join(errs...)
}
