package frame

import (
	"fmt"
	"math"
	"time"
)

// Cell is a nullable numeric value.
type Cell struct {
	Value float64
	Valid bool
}

// Num returns a valid cell, or a null one for NaN and infinities.
func Num(v float64) Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Cell{}
	}
	return Cell{Value: v, Valid: true}
}

// Null is the missing value.
var Null = Cell{}

// Column is one labelled column aligned with the frame index.
type Column struct {
	Label  Label
	Values []Cell
}

// Raw is a provider response for one symbol: a time index and the columns
// aligned to it. Index timestamps carry the exchange location.
type Raw struct {
	IndexName string
	Index     []time.Time
	Columns   []Column
}

func (r *Raw) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Index)
}

func (r *Raw) Empty() bool { return r.Len() == 0 }

// Validate checks that every column is aligned with the index.
func (r *Raw) Validate() error {
	for _, c := range r.Columns {
		if len(c.Values) != len(r.Index) {
			return fmt.Errorf("column %s has %d values, index has %d", c.Label, len(c.Values), len(r.Index))
		}
	}
	return nil
}
