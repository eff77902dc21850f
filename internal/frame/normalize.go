package frame

import (
	"math"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"PriceLakehouse/internal/model"
)

// Canonical is one symbol's frame after normalization.
type Canonical struct {
	Symbol string
	// Columns lists the canonical columns present, in schema order.
	Columns []model.Field
	Rows    []model.PriceRow
}

// Round2 rounds half away from zero to two decimals. Rounding works on the
// shortest decimal form of v, so 150.555 becomes 150.56 and already rounded
// values are unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Normalize turns a raw provider frame into canonical rows for symbol.
// Each output row is built fresh; raw is not modified.
func Normalize(symbol string, raw *Raw) (Canonical, error) {
	out := Canonical{Symbol: symbol}
	if raw.Empty() {
		return out, nil
	}
	if err := raw.Validate(); err != nil {
		return out, err
	}

	names := make([]string, len(raw.Columns))
	for i, c := range raw.Columns {
		names[i] = Flatten(c.Label)
	}
	mapping := Rename(names)

	byField := make(map[model.Field][]Cell, len(model.Schema))
	for i, c := range raw.Columns {
		f, ok := mapping[names[i]]
		if !ok || f == model.FieldDate {
			continue
		}
		if _, dup := byField[f]; dup {
			continue
		}
		byField[f] = c.Values
	}
	if _, ok := byField[model.FieldAdjClose]; !ok {
		if closes, ok := byField[model.FieldClose]; ok {
			byField[model.FieldAdjClose] = closes
		}
	}

	out.Columns = []model.Field{model.FieldDate, model.FieldSymbol}
	for _, f := range model.Schema[2:] {
		if _, ok := byField[f]; ok {
			out.Columns = append(out.Columns, f)
		}
	}

	out.Rows = make([]model.PriceRow, 0, len(raw.Index))
	for i, ts := range raw.Index {
		row := model.PriceRow{Date: civil.DateOf(ts), Symbol: symbol}
		for _, f := range model.PriceFields {
			cells, ok := byField[f]
			if !ok || !cells[i].Valid {
				continue
			}
			row.SetPrice(f, model.Float(Round2(cells[i].Value)))
		}
		if !row.HasPrice() {
			continue
		}
		if cells, ok := byField[model.FieldVolume]; ok && cells[i].Valid {
			row.Volume = volume(cells[i].Value)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// volume rounds v to a share count. Negative, non-finite or out of range
// values are treated as missing.
func volume(v float64) *int64 {
	v = math.Round(v)
	if math.IsNaN(v) || v < 0 || v >= math.MaxInt64 {
		return nil
	}
	return model.Int(int64(v))
}
