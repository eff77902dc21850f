package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/model"
)

// GCSStore keeps snapshots in a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore opens a storage client. opts carry credentials, e.g.
// option.WithCredentialsFile.
func NewGCSStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) Locate(partition string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, ObjectPath(s.prefix, partition))
}

func (s *GCSStore) Store(ctx context.Context, rows []model.PriceRow, partition string) (string, error) {
	if len(rows) == 0 {
		return "", ErrEmpty
	}
	name := ObjectPath(s.prefix, partition)

	// Canceling the writer's context aborts the upload.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/vnd.apache.parquet"
	if err := Encode(w, rows); err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("upload gs://%s/%s: %w", s.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload gs://%s/%s: %w", s.bucket, name, err)
	}

	uri := s.Locate(partition)
	logger.Infof("snapshot stored: %s (%d rows)", uri, len(rows))
	return uri, nil
}

func (s *GCSStore) Fetch(ctx context.Context, uri string) ([]model.PriceRow, error) {
	bucket, name, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return Decode(bytes.NewReader(data), int64(len(data)))
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs uri needs a bucket and an object: %q", uri)
	}
	return bucket, object, nil
}
