package model

import "cloud.google.com/go/civil"

// PriceRow is one symbol-day observation in the canonical schema.
// Nil price or volume fields mean the provider did not supply them.
type PriceRow struct {
	Date     civil.Date
	Symbol   string
	Open     *float64
	High     *float64
	Low      *float64
	Close    *float64
	AdjClose *float64
	Volume   *int64
}

// Price returns the price field f, or nil when f is not a price field.
func (r *PriceRow) Price(f Field) *float64 {
	switch f {
	case FieldOpen:
		return r.Open
	case FieldHigh:
		return r.High
	case FieldLow:
		return r.Low
	case FieldClose:
		return r.Close
	case FieldAdjClose:
		return r.AdjClose
	}
	return nil
}

// SetPrice assigns the price field f. Non-price fields are ignored.
func (r *PriceRow) SetPrice(f Field, v *float64) {
	switch f {
	case FieldOpen:
		r.Open = v
	case FieldHigh:
		r.High = v
	case FieldLow:
		r.Low = v
	case FieldClose:
		r.Close = v
	case FieldAdjClose:
		r.AdjClose = v
	}
}

// HasPrice reports whether at least one price field is set.
func (r *PriceRow) HasPrice() bool {
	for _, f := range PriceFields {
		if r.Price(f) != nil {
			return true
		}
	}
	return false
}

// Dataset holds the combined rows of one run, in symbol insertion order.
type Dataset struct {
	Rows []PriceRow
}

func (d Dataset) Len() int    { return len(d.Rows) }
func (d Dataset) Empty() bool { return len(d.Rows) == 0 }

// Symbols returns the distinct symbols of the dataset in first-seen order.
func (d Dataset) Symbols() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.Rows {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		out = append(out, r.Symbol)
	}
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }
