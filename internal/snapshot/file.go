package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/model"
)

// FileStore keeps snapshots on the local filesystem under Dir.
type FileStore struct {
	Dir    string
	Prefix string
}

func NewFileStore(dir, prefix string) *FileStore {
	return &FileStore{Dir: dir, Prefix: prefix}
}

func (s *FileStore) path(partition string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(ObjectPath(s.Prefix, partition)))
}

func (s *FileStore) Locate(partition string) string {
	p, err := filepath.Abs(s.path(partition))
	if err != nil {
		p = s.path(partition)
	}
	return "file://" + filepath.ToSlash(p)
}

// Store writes to a temp file next to the target and renames it into place.
func (s *FileStore) Store(ctx context.Context, rows []model.PriceRow, partition string) (string, error) {
	if len(rows) == 0 {
		return "", ErrEmpty
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := s.path(partition)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".stock_prices-*.parquet")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, rows); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("move snapshot into place: %w", err)
	}

	uri := s.Locate(partition)
	logger.Infof("snapshot stored: %s (%d rows)", uri, len(rows))
	return uri, nil
}

// Fetch accepts a file:// URI or a plain path.
func (s *FileStore) Fetch(ctx context.Context, uri string) ([]model.PriceRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(strings.TrimPrefix(uri, "file://"))
}

// ReadFile decodes a local Parquet snapshot.
func ReadFile(name string) ([]model.PriceRow, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Decode(f, info.Size())
}
