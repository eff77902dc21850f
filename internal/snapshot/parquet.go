package snapshot

import (
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/civil"
	"github.com/parquet-go/parquet-go"

	"PriceLakehouse/internal/model"
)

var epoch = civil.Date{Year: 1970, Month: time.January, Day: 1}

// record is the on-disk row. date is a DATE logical type (days since the
// Unix epoch) so strict date-typed consumers accept it as-is. Pointer
// fields are optional columns.
type record struct {
	Date     int32    `parquet:"date,date"`
	Symbol   string   `parquet:"symbol"`
	Open     *float64 `parquet:"open"`
	High     *float64 `parquet:"high"`
	Low      *float64 `parquet:"low"`
	Close    *float64 `parquet:"close"`
	AdjClose *float64 `parquet:"adj_close"`
	Volume   *int64   `parquet:"volume"`
}

func toRecord(r model.PriceRow) record {
	return record{
		Date:     int32(r.Date.DaysSince(epoch)),
		Symbol:   r.Symbol,
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		AdjClose: r.AdjClose,
		Volume:   r.Volume,
	}
}

func (rec record) row() model.PriceRow {
	return model.PriceRow{
		Date:     epoch.AddDays(int(rec.Date)),
		Symbol:   rec.Symbol,
		Open:     rec.Open,
		High:     rec.High,
		Low:      rec.Low,
		Close:    rec.Close,
		AdjClose: rec.AdjClose,
		Volume:   rec.Volume,
	}
}

// Encode writes rows to w as a single Parquet file.
func Encode(w io.Writer, rows []model.PriceRow) error {
	pw := parquet.NewGenericWriter[record](w)
	recs := make([]record, len(rows))
	for i, r := range rows {
		recs[i] = toRecord(r)
	}
	if _, err := pw.Write(recs); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// Decode reads every row of a Parquet snapshot.
func Decode(r io.ReaderAt, size int64) ([]model.PriceRow, error) {
	recs, err := parquet.Read[record](r, size)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	rows := make([]model.PriceRow, len(recs))
	for i, rec := range recs {
		rows[i] = rec.row()
	}
	return rows, nil
}

// Summary describes a Parquet file without loading it into rows.
type Summary struct {
	Schema  string
	Columns []string
	NumRows int64
}

// Inspect reads the schema and row count of a Parquet file.
func Inspect(r io.ReaderAt, size int64) (Summary, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return Summary{}, fmt.Errorf("open parquet: %w", err)
	}
	s := Summary{Schema: f.Schema().String(), NumRows: f.NumRows()}
	for _, field := range f.Schema().Fields() {
		s.Columns = append(s.Columns, field.Name())
	}
	return s, nil
}
