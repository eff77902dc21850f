package snapshot

import (
	"context"
	"errors"
	"path"

	"PriceLakehouse/internal/model"
)

// FileName is the object name of every snapshot inside its partition.
const FileName = "stock_prices.parquet"

// ErrEmpty is returned when asked to store a dataset with no rows.
var ErrEmpty = errors.New("snapshot: no rows to store")

// Writer persists one run's rows under a date partition and returns the
// artifact URI. Storing the same partition twice overwrites it.
type Writer interface {
	Store(ctx context.Context, rows []model.PriceRow, partition string) (string, error)
}

// Reader loads a stored snapshot back into rows.
type Reader interface {
	Fetch(ctx context.Context, uri string) ([]model.PriceRow, error)
}

// Store is a snapshot backend.
type Store interface {
	Writer
	Reader
	// Locate returns the URI a partition is (or would be) stored at.
	Locate(partition string) string
}

// ObjectPath returns "<prefix>/<partition>/stock_prices.parquet".
func ObjectPath(prefix, partition string) string {
	return path.Join(prefix, partition, FileName)
}
