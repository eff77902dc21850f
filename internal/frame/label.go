package frame

import (
	"fmt"
	"strings"

	"PriceLakehouse/internal/model"
)

// Label is a provider column label. Responses that nest a price-field axis
// with a ticker axis carry two-level composite labels such as ("Open", "AAPL").
type Label struct {
	levels    [2]string
	composite bool
}

// Atomic returns a single-level label.
func Atomic(name string) Label {
	return Label{levels: [2]string{name}}
}

// Composite returns a two-level label; field comes first.
func Composite(field, ticker string) Label {
	return Label{levels: [2]string{field, ticker}, composite: true}
}

func (l Label) IsComposite() bool { return l.composite }

func (l Label) String() string {
	if l.composite {
		return fmt.Sprintf("(%q, %q)", l.levels[0], l.levels[1])
	}
	return l.levels[0]
}

// Flatten reduces a label to a single column name. For composite labels the
// first non-empty level wins, so the price field takes precedence over an
// embedded ticker. Atomic labels are returned as-is.
func Flatten(l Label) string {
	if !l.composite {
		return l.levels[0]
	}
	for _, level := range l.levels {
		if level != "" {
			return strings.TrimSpace(level)
		}
	}
	return ""
}

var canonicalNames = map[string]model.Field{
	"Date":      model.FieldDate,
	"Datetime":  model.FieldDate,
	"index":     model.FieldDate,
	"Open":      model.FieldOpen,
	"High":      model.FieldHigh,
	"Low":       model.FieldLow,
	"Close":     model.FieldClose,
	"Adj Close": model.FieldAdjClose,
	"Volume":    model.FieldVolume,

	// already-canonical names survive the closed-schema filter unchanged
	"date":      model.FieldDate,
	"open":      model.FieldOpen,
	"high":      model.FieldHigh,
	"low":       model.FieldLow,
	"close":     model.FieldClose,
	"adj_close": model.FieldAdjClose,
	"volume":    model.FieldVolume,
}

// Rename maps flattened provider column names to canonical fields. Names
// outside the canonical schema are absent from the result.
func Rename(names []string) map[string]model.Field {
	out := make(map[string]model.Field, len(names))
	for _, n := range names {
		if f, ok := canonicalNames[n]; ok {
			out[n] = f
		}
	}
	return out
}
